// Package agent is a provider-agnostic coding agent. A model identifier such
// as "claude-3-5-sonnet-latest", "gpt-4o" or "ollama-llama3" selects the
// vendor adapter; the Agent then offers one chat contract, image queries and
// a tool loop over a shared catalog.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
	"github.com/Protocol-Lattice/cursor-agent/src/models"
	"github.com/Protocol-Lattice/cursor-agent/src/permissions"
	"github.com/Protocol-Lattice/cursor-agent/src/store"
	"github.com/Protocol-Lattice/cursor-agent/src/tools"
)

const defaultSystemPrompt = "You are a coding assistant working inside the user's workspace. Give concise, accurate answers. Use the available tools to read, search and change files or run commands instead of guessing, and explain what you changed."

// DefaultMaxToolIterations bounds the tool rounds of a single Chat call.
const DefaultMaxToolIterations = 10

const defaultCacheTTL = time.Hour

// Config is the immutable configuration of an Agent.
type Config struct {
	// Model is the identifier given to CreateAgent.
	Model string
	Host  string
	// APIKey is the explicit key, if any. Environment keys are not copied here.
	APIKey string

	Provider models.Kind
	// ProviderModel is the name sent to the vendor (prefix stripped for Ollama).
	ProviderModel string

	Temperature       *float64
	MaxTokens         int
	SystemPrompt      string
	MaxToolIterations int
	Capabilities      models.Capabilities
}

// Agent binds one provider adapter to a tool catalog and a conversation
// history. Calls on one Agent are serialised; separate agents share nothing.
type Agent struct {
	cfg       Config
	provider  models.Provider
	catalog   *tools.Catalog
	perms     tools.Permitter
	defaults  tools.DefaultConfig
	workspace string
	log       *logging.Logger

	transcript     store.Store
	sessionID      string
	ownsTranscript bool

	mu      sync.Mutex
	history []models.Message
}

// CreateAgent resolves model to a provider adapter and returns an Agent.
// It fails with *UnknownModelError when no provider prefix matches. No
// network request is made.
func CreateAgent(model string, opts ...Option) (*Agent, error) {
	kind, providerModel, err := models.Resolve(model)
	if err != nil {
		return nil, err
	}

	o := options{maxToolIterations: DefaultMaxToolIterations}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log
	if log == nil {
		log = logging.New(nil, "")
	}
	log = log.Sub("agent").With("model", model)

	cfg := Config{
		Model:             strings.TrimSpace(model),
		Host:              o.host,
		APIKey:            o.apiKey,
		Provider:          kind,
		ProviderModel:     providerModel,
		Temperature:       o.temperature,
		MaxTokens:         o.maxTokens,
		SystemPrompt:      o.systemPrompt,
		MaxToolIterations: o.maxToolIterations,
		Capabilities:      models.CapabilitiesFor(kind, providerModel),
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = DefaultMaxToolIterations
	}

	provider := o.provider
	if provider == nil {
		provider, err = models.NewProvider(kind, models.Settings{
			APIKey:     o.apiKey,
			Host:       o.host,
			HTTPClient: o.httpClient,
			Logger:     log,
		})
		if err != nil {
			return nil, err
		}
	}
	if o.cacheSize > 0 {
		ttl := o.cacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		provider = models.NewCachedProvider(provider, o.cacheSize, ttl, o.cacheFile, log)
	}

	perms := o.perms
	if perms == nil {
		perms = permissions.NewManager(permissions.DefaultOptions(), permissions.WithLogger(log))
	}

	defaults := o.toolDefaults
	if defaults == nil {
		d := tools.DefaultConfigFromEnv()
		defaults = &d
	}
	if defaults.HTTPClient == nil {
		defaults.HTTPClient = o.httpClient
	}
	if defaults.Logger == nil {
		defaults.Logger = log
	}

	a := &Agent{
		cfg:            cfg,
		provider:       provider,
		catalog:        tools.NewCatalog(),
		perms:          perms,
		defaults:       *defaults,
		workspace:      o.workspace,
		log:            log,
		transcript:     o.transcript,
		sessionID:      o.sessionID,
		ownsTranscript: o.ownsTranscript,
	}
	for _, t := range o.tools {
		if err := a.catalog.Register(t); err != nil {
			return nil, err
		}
	}

	if a.transcript != nil {
		if a.sessionID == "" {
			return nil, errors.New("transcript store requires a session id")
		}
		prior, err := a.transcript.Load(context.Background(), a.sessionID)
		if err != nil {
			return nil, fmt.Errorf("restore transcript %s: %w", a.sessionID, err)
		}
		a.history = prior
		log.Debug().Str("session", a.sessionID).Int("messages", len(prior)).Msg("transcript restored")
	}

	log.Debug().Str("provider", string(kind)).Bool("vision", cfg.Capabilities.Vision).Bool("tools", cfg.Capabilities.Tools).Msg("agent created")
	return a, nil
}

// Config returns the agent configuration.
func (a *Agent) Config() Config { return a.cfg }

// Provider returns the adapter serving this agent.
func (a *Agent) Provider() models.Provider { return a.provider }

// Chat sends message with the per-call context and runs the tool loop until
// the model answers without tool calls. Provider failures are returned as
// *ProviderError; tool failures are reported to the model instead.
//
// A message of the form "tool:<name> <json>" invokes a registered tool
// directly without contacting the provider.
func (a *Agent) Chat(ctx context.Context, message string, cc ConversationContext) (*Response, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("message is empty")
	}
	if name, args, ok := directToolCall(message); ok {
		return a.invokeDirect(ctx, name, args, cc)
	}
	return a.converse(ctx, models.Message{Role: models.RoleUser, Content: message}, cc)
}

// QueryImage asks query about the images at paths. Models without vision
// fail with *UnsupportedCapabilityError before any file or network access,
// as do image formats the provider cannot accept.
func (a *Agent) QueryImage(ctx context.Context, paths []string, query string) (*Response, error) {
	if !a.cfg.Capabilities.Vision {
		return nil, &UnsupportedCapabilityError{Model: a.cfg.Model, Capability: "vision"}
	}
	if len(paths) == 0 {
		return nil, errors.New("no image paths given")
	}
	images, err := models.LoadImages(ctx, paths)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		if !models.AcceptsImage(a.cfg.Provider, img.MIME) {
			return nil, &UnsupportedCapabilityError{Model: a.cfg.Model, Capability: img.MIME + " images"}
		}
	}
	if strings.TrimSpace(query) == "" {
		query = "Describe these images."
	}
	return a.converse(ctx, models.Message{Role: models.RoleUser, Content: query, Images: images}, nil)
}

// converse appends user to the history and drives the provider/tool loop.
// History and transcript are updated only when the turn completes.
func (a *Agent) converse(ctx context.Context, user models.Message, cc ConversationContext) (*Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	msgs := make([]models.Message, 0, len(a.history)+1)
	msgs = append(msgs, a.history...)
	msgs = append(msgs, user)
	start := len(a.history)

	req := models.ChatRequest{
		Model:       a.cfg.ProviderModel,
		System:      a.systemPrompt(cc),
		Messages:    msgs,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}
	if a.cfg.Capabilities.Tools {
		req.Tools = a.toolDefinitions()
	}
	workspace := cc.Workspace(a.workspace)

	resp := &Response{}
	for round := 0; ; round++ {
		out, err := a.provider.Chat(ctx, req)
		if err != nil {
			return nil, a.providerError(err)
		}
		a.log.Debug().Int("round", round).Int("tool_calls", len(out.ToolCalls)).
			Int("input_tokens", out.Usage.InputTokens).Int("output_tokens", out.Usage.OutputTokens).Msg("provider replied")

		reply := models.Message{Role: models.RoleAssistant, Content: out.Content, ToolCalls: out.ToolCalls}
		if len(out.ToolCalls) == 0 {
			req.Messages = append(req.Messages, reply)
			resp.Message = out.Content
			break
		}
		if round >= a.cfg.MaxToolIterations {
			// Unanswered tool calls would make the history invalid for the next request.
			reply.ToolCalls = nil
			if strings.TrimSpace(reply.Content) == "" {
				reply.Content = fmt.Sprintf("Stopped after %d tool iterations.", a.cfg.MaxToolIterations)
			}
			req.Messages = append(req.Messages, reply)
			resp.Message = reply.Content
			a.log.Warn().Int("limit", a.cfg.MaxToolIterations).Msg("tool iteration limit reached")
			break
		}

		req.Messages = append(req.Messages, reply)
		for _, call := range out.ToolCalls {
			record, result := a.runTool(ctx, call, workspace)
			resp.ToolCalls = append(resp.ToolCalls, record)
			req.Messages = append(req.Messages, result)
		}
	}

	a.history = req.Messages
	a.persist(ctx, req.Messages[start:])
	return resp, nil
}

// runTool executes one model tool call. Failures become error results for
// the model.
func (a *Agent) runTool(ctx context.Context, call models.ToolCall, workspace string) (ToolCall, models.Message) {
	record := ToolCall{Name: call.Name, Parameters: call.Arguments}
	msg := models.Message{Role: models.RoleTool, ToolCallID: call.ID, ToolName: call.Name}

	out, err := a.invokeTool(ctx, call.Name, call.Arguments, workspace)
	if err != nil {
		a.log.Info().Str("tool", call.Name).Err(err).Msg("tool failed")
		record.Error = err.Error()
		msg.Content = "Error: " + err.Error()
		msg.IsError = true
		return record, msg
	}
	record.Result = out.Result
	if record.Result == nil {
		record.Result = out.Content
	}
	msg.Content = out.Content
	return record, msg
}

func (a *Agent) invokeTool(ctx context.Context, name string, args map[string]any, workspace string) (tools.Response, error) {
	tool, spec, ok := a.catalog.Lookup(name)
	if !ok {
		return tools.Response{}, fmt.Errorf("unknown tool: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	a.log.Debug().Str("tool", spec.Name).Msg("invoking tool")
	return tool.Invoke(ctx, tools.Request{
		SessionID:   a.sessionID,
		Arguments:   args,
		Workspace:   workspace,
		Permissions: a.perms,
	})
}

func (a *Agent) providerError(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: a.provider.Name(), Message: err.Error(), Err: err}
}

func (a *Agent) persist(ctx context.Context, turn []models.Message) {
	if a.transcript == nil || len(turn) == 0 {
		return
	}
	if err := a.transcript.Append(context.WithoutCancel(ctx), a.sessionID, turn...); err != nil {
		a.log.Warn().Err(err).Str("session", a.sessionID).Msg("transcript append failed")
	}
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Message(nil), a.history...)
}

// Reset forgets the conversation, including the persisted transcript.
func (a *Agent) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
	if a.transcript != nil {
		return a.transcript.Clear(ctx, a.sessionID)
	}
	return nil
}

// Close releases provider clients and any transcript store the agent opened.
func (a *Agent) Close() error {
	var errs []error
	if c, ok := a.provider.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.ownsTranscript && a.transcript != nil {
		errs = append(errs, a.transcript.Close())
	}
	return errors.Join(errs...)
}
