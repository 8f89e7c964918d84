package tools

import (
	"net/http"
	"os"
	"strings"

	"google.golang.org/api/option"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

// Environment variables enabling web_search.
const (
	EnvSearchAPIKey   = "GOOGLE_API_KEY"
	EnvSearchEngineID = "GOOGLE_SEARCH_ENGINE_ID"
)

// DefaultConfig parameterises the default tool set.
type DefaultConfig struct {
	// SearchAPIKey and SearchEngineID enable web_search when both are set.
	SearchAPIKey   string
	SearchEngineID string
	SearchOptions  []option.ClientOption

	HTTPClient *http.Client
	Logger     *logging.Logger
}

// DefaultConfigFromEnv fills the search credentials from the environment.
func DefaultConfigFromEnv() DefaultConfig {
	return DefaultConfig{
		SearchAPIKey:   strings.TrimSpace(os.Getenv(EnvSearchAPIKey)),
		SearchEngineID: strings.TrimSpace(os.Getenv(EnvSearchEngineID)),
	}
}

// Defaults returns the default coding tools in presentation order.
func Defaults(cfg DefaultConfig) []Tool {
	log := cfg.Logger.Sub("tools")
	out := []Tool{
		&readFile{log: log},
		&editFile{log: log},
		&createFile{log: log},
		&deleteFile{log: log},
		&listDirectory{},
		&runTerminalCommand{log: log},
		&grepSearch{},
		&fileSearch{},
	}
	if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
		out = append(out, NewWebSearch(cfg.SearchAPIKey, cfg.SearchEngineID, log, cfg.SearchOptions...))
	}
	out = append(out, newFetchWebpage(cfg.HTTPClient, log))
	return out
}
