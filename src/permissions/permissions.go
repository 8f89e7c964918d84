// Package permissions decides whether a tool may perform a side-effecting
// operation, asking the user when the configured policy requires it.
package permissions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

// Status is the outcome of evaluating a Request against Options.
type Status string

const (
	Granted           Status = "granted"
	Denied            Status = "denied"
	NeedsConfirmation Status = "needs_confirmation"
)

// Operations that tools ask permission for.
const (
	OpRunTerminalCommand = "run_terminal_command"
	OpDeleteFile         = "delete_file"
	OpEditFile           = "edit_file"
	OpCreateFile         = "create_file"
)

// DefaultYoloPrompt is shown when yolo mode is on and no prompt is configured.
const DefaultYoloPrompt = "YOLO MODE ENABLED: some operations will run without confirmation."

// Request describes one operation awaiting permission.
type Request struct {
	Operation string         `json:"operation"`
	Details   map[string]any `json:"details"`
}

// Options configures the policy.
type Options struct {
	YoloMode             bool     `yaml:"yolo_mode" json:"yolo_mode"`
	YoloPrompt           string   `yaml:"yolo_prompt" json:"yolo_prompt,omitempty"`
	CommandAllowlist     []string `yaml:"command_allowlist" json:"command_allowlist,omitempty"`
	CommandDenylist      []string `yaml:"command_denylist" json:"command_denylist,omitempty"`
	DeleteFileProtection bool     `yaml:"delete_file_protection" json:"delete_file_protection"`
}

// DefaultOptions returns confirmation-for-everything with delete protection on.
func DefaultOptions() Options {
	return Options{DeleteFileProtection: true}
}

// Callback resolves requests that need confirmation. Anything other than
// Granted counts as a refusal.
type Callback func(Request) Status

// Manager evaluates requests and obtains confirmation when required.
type Manager struct {
	opts     Options
	callback Callback
	in       *bufio.Reader
	out      io.Writer
	log      *logging.Logger

	mu sync.Mutex // serialises interactive prompts
}

// Option customises a Manager.
type Option func(*Manager)

// WithCallback routes confirmations to cb instead of the prompt.
func WithCallback(cb Callback) Option {
	return func(m *Manager) { m.callback = cb }
}

// WithPrompt enables the interactive y/n prompt on in/out.
func WithPrompt(in io.Reader, out io.Writer) Option {
	return func(m *Manager) {
		if in != nil {
			m.in = bufio.NewReader(in)
		}
		m.out = out
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager builds a Manager. Without a callback or prompt reader, requests
// needing confirmation are denied.
func NewManager(opts Options, options ...Option) *Manager {
	m := &Manager{opts: opts, out: io.Discard}
	for _, o := range options {
		o(m)
	}
	if m.out == nil {
		m.out = io.Discard
	}
	m.log = m.log.Sub("permissions")

	if opts.YoloMode {
		msg := opts.YoloPrompt
		if msg == "" {
			msg = DefaultYoloPrompt
		}
		m.log.Warn().Strs("allowlist", opts.CommandAllowlist).Strs("denylist", opts.CommandDenylist).Msg("yolo mode enabled")
		fmt.Fprintf(m.out, "\n%s\n\n", msg)
	}
	return m
}

// Options returns the policy in effect.
func (m *Manager) Options() Options { return m.opts }

// Evaluate applies the policy without asking anyone.
//
// Order: denylisted terminal commands are denied; delete_file under
// protection needs confirmation; in yolo mode terminal commands must match a
// non-empty allowlist and all else is granted; otherwise confirmation.
func (m *Manager) Evaluate(req Request) Status {
	if req.Operation == OpRunTerminalCommand {
		cmd := detailString(req.Details, "command")
		if containsAny(cmd, m.opts.CommandDenylist) {
			return Denied
		}
	}
	if req.Operation == OpDeleteFile && m.opts.DeleteFileProtection {
		return NeedsConfirmation
	}
	if m.opts.YoloMode {
		if req.Operation == OpRunTerminalCommand && len(m.opts.CommandAllowlist) > 0 {
			if !containsAny(detailString(req.Details, "command"), m.opts.CommandAllowlist) {
				return NeedsConfirmation
			}
		}
		return Granted
	}
	return NeedsConfirmation
}

// RequestPermission reports whether operation may proceed.
func (m *Manager) RequestPermission(operation string, details map[string]any) bool {
	req := Request{Operation: operation, Details: details}
	log := m.log.With("operation", operation)

	switch m.Evaluate(req) {
	case Granted:
		log.Debug().Msg("granted by policy")
		return true
	case Denied:
		log.Warn().Interface("details", details).Msg("denied by policy")
		fmt.Fprintf(m.out, "\nPermission denied for %s: %s\n", operation, prettyJSON(details))
		return false
	}

	if m.callback != nil {
		granted := m.callback(req) == Granted
		log.Info().Bool("granted", granted).Msg("callback decided")
		return granted
	}
	if m.in == nil {
		log.Info().Msg("confirmation required but no prompt available; denying")
		return false
	}
	return m.prompt(req)
}

func (m *Manager) prompt(req Request) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintf(m.out, "\nPermission Request: %s\nDetails: %s\n", req.Operation, prettyJSON(req.Details))
	for {
		fmt.Fprint(m.out, "Allow this operation? (y/n): ")
		line, err := m.in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			m.log.Info().Str("operation", req.Operation).Msg("user granted")
			return true
		case "n", "no":
			m.log.Info().Str("operation", req.Operation).Msg("user denied")
			return false
		}
		if err != nil {
			// EOF before an answer.
			return false
		}
		fmt.Fprintln(m.out, "Please enter 'y' or 'n'")
	}
}

func detailString(details map[string]any, key string) string {
	if v, ok := details[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
