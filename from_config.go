package agent

import (
	"context"

	"github.com/google/uuid"

	"github.com/Protocol-Lattice/cursor-agent/src/config"
	"github.com/Protocol-Lattice/cursor-agent/src/logging"
	"github.com/Protocol-Lattice/cursor-agent/src/permissions"
	"github.com/Protocol-Lattice/cursor-agent/src/store"
	"github.com/Protocol-Lattice/cursor-agent/src/tools"
)

// NewFromConfig builds an Agent from a loaded configuration. Options given
// here are applied after those derived from cfg and win on conflict.
//
// The default tools are registered unless cfg.Tools.Disabled. A transcript
// DSN opens a store the agent owns and closes; without a configured session
// id a fresh one is generated.
func NewFromConfig(ctx context.Context, cfg config.Config, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.New(nil, cfg.Logging.Level)

	toolDefaults := tools.DefaultConfigFromEnv()
	if cfg.Tools.SearchAPIKey != "" {
		toolDefaults.SearchAPIKey = cfg.Tools.SearchAPIKey
	}
	if cfg.Tools.SearchEngineID != "" {
		toolDefaults.SearchEngineID = cfg.Tools.SearchEngineID
	}

	base := []Option{
		WithLogger(log),
		WithHost(cfg.Host),
		WithAPIKey(cfg.APIKey),
		WithMaxTokens(cfg.MaxTokens),
		WithSystemPrompt(cfg.SystemPrompt),
		WithMaxToolIterations(cfg.MaxToolIterations),
		WithWorkspace(cfg.Workspace),
		WithDefaultToolConfig(toolDefaults),
		WithPermissions(permissions.NewManager(cfg.Permissions, permissions.WithLogger(log))),
	}
	if cfg.Temperature != nil {
		base = append(base, WithTemperature(*cfg.Temperature))
	}
	if cfg.Cache.Size > 0 {
		base = append(base, WithCache(cfg.Cache.Size, cfg.Cache.TTL, cfg.Cache.File))
	}

	var owned store.Store
	if cfg.Transcript.DSN != "" {
		s, err := store.Open(ctx, cfg.Transcript.DSN, log)
		if err != nil {
			return nil, err
		}
		owned = s
		session := cfg.Transcript.Session
		if session == "" {
			session = uuid.NewString()
		}
		base = append(base, WithTranscript(s, session), func(o *options) { o.ownsTranscript = true })
	}

	a, err := CreateAgent(cfg.Model, append(base, opts...)...)
	if err != nil {
		if owned != nil {
			owned.Close()
		}
		return nil, err
	}
	if !cfg.Tools.Disabled {
		if err := a.RegisterDefaultTools(); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// SessionID returns the transcript session, empty when history is not
// persisted.
func (a *Agent) SessionID() string { return a.sessionID }
