package agent

import (
	"net/http"
	"time"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
	"github.com/Protocol-Lattice/cursor-agent/src/models"
	"github.com/Protocol-Lattice/cursor-agent/src/store"
	"github.com/Protocol-Lattice/cursor-agent/src/tools"
)

type options struct {
	host              string
	apiKey            string
	temperature       *float64
	maxTokens         int
	systemPrompt      string
	maxToolIterations int
	workspace         string

	log          *logging.Logger
	perms        tools.Permitter
	tools        []tools.Tool
	toolDefaults *tools.DefaultConfig
	provider     models.Provider
	httpClient   *http.Client

	transcript     store.Store
	sessionID      string
	ownsTranscript bool

	cacheSize int
	cacheTTL  time.Duration
	cacheFile string
}

// Option customises CreateAgent.
type Option func(*options)

// WithHost sets the Ollama server address, or the API base URL for hosted
// vendors.
func WithHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithAPIKey overrides the vendor key environment variable.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = &t }
}

func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithSystemPrompt replaces the built-in system prompt.
func WithSystemPrompt(p string) Option {
	return func(o *options) { o.systemPrompt = p }
}

func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithPermissions sets the policy consulted by side-effecting tools. The
// default denies anything that needs confirmation.
func WithPermissions(p tools.Permitter) Option {
	return func(o *options) { o.perms = p }
}

// WithTools registers tools at construction.
func WithTools(ts ...tools.Tool) Option {
	return func(o *options) { o.tools = append(o.tools, ts...) }
}

// WithDefaultToolConfig configures the tools added by RegisterDefaultTools.
func WithDefaultToolConfig(cfg tools.DefaultConfig) Option {
	return func(o *options) { o.toolDefaults = &cfg }
}

// WithProvider bypasses adapter construction; the model identifier still
// decides capabilities and the model name sent.
func WithProvider(p models.Provider) Option {
	return func(o *options) { o.provider = p }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTranscript restores the history of sessionID from s and appends every
// completed turn to it. The caller keeps ownership of s.
func WithTranscript(s store.Store, sessionID string) Option {
	return func(o *options) {
		o.transcript = s
		o.sessionID = sessionID
		o.ownsTranscript = false
	}
}

func WithMaxToolIterations(n int) Option {
	return func(o *options) { o.maxToolIterations = n }
}

// WithWorkspace sets the directory tools resolve relative paths against when
// the conversation context has no workspace_path.
func WithWorkspace(dir string) Option {
	return func(o *options) { o.workspace = dir }
}

// WithCache memoises identical provider requests in an LRU of size entries.
// A non-empty file persists the cache between runs.
func WithCache(size int, ttl time.Duration, file string) Option {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
		o.cacheFile = file
	}
}
