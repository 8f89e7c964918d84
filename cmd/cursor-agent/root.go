package main

import (
	"bufio"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	agent "github.com/Protocol-Lattice/cursor-agent"
	"github.com/Protocol-Lattice/cursor-agent/src/config"
	"github.com/Protocol-Lattice/cursor-agent/src/logging"
	"github.com/Protocol-Lattice/cursor-agent/src/permissions"
)

// app holds the persistent flags and whatever PersistentPreRunE loaded.
type app struct {
	cfgFile  string
	logLevel string
	model    string
	host     string
	session  string
	yolo     bool
	noTools  bool

	cfg config.Config
	log *logging.Logger
	in  *bufio.Reader

	// extra options are appended when an agent is built.
	extra []agent.Option
}

func newRootCmd(extra ...agent.Option) *cobra.Command {
	a := &app{extra: extra}

	cmd := &cobra.Command{
		Use:   "cursor-agent",
		Short: "cursor-agent: a coding agent for Claude, OpenAI, Gemini and Ollama models",
		Long: "cursor-agent talks to a language model that can read, search and edit files and run " +
			"commands in your workspace. The model identifier selects the provider.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadDotEnv(".env"); err != nil {
				return err
			}
			return a.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ~/.cursor-agent/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, silent)")
	flags.StringVarP(&a.model, "model", "m", "", "model identifier, e.g. claude-3-5-sonnet-latest, gpt-4o, ollama-llama3")
	flags.StringVar(&a.host, "host", "", "provider endpoint override (Ollama host or OpenAI-compatible base URL)")
	flags.StringVar(&a.session, "session", "", "persist history under this session id")
	flags.BoolVar(&a.yolo, "yolo", false, "grant tool operations without asking (deletes still ask)")
	flags.BoolVar(&a.noTools, "no-tools", false, "do not register the default tools")

	cmd.AddCommand(newChatCmd(a))
	cmd.AddCommand(newAskCmd(a))
	cmd.AddCommand(newImageCmd(a))
	cmd.AddCommand(newModelsCmd(a))
	return cmd
}

// loadDotEnv loads path into the environment. A missing file is fine and
// variables already set win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// load reads the configuration and applies flag overrides.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.model != "" {
		cfg.Model = a.model
	}
	if a.host != "" {
		cfg.Host = a.host
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.yolo {
		cfg.Permissions.YoloMode = true
		if cfg.Permissions.YoloPrompt == "" {
			cfg.Permissions.YoloPrompt = permissions.DefaultYoloPrompt
		}
	}
	if a.noTools {
		cfg.Tools.Disabled = true
	}
	if a.session != "" {
		cfg.Transcript.Session = a.session
		if cfg.Transcript.DSN == "" {
			dsn, err := defaultTranscriptPath(a.cfgFile)
			if err != nil {
				return err
			}
			cfg.Transcript.DSN = dsn
		}
	}

	a.cfg = cfg
	a.log = logging.New(nil, cfg.Logging.Level).Sub("cli")
	a.in = bufio.NewReader(cmd.InOrStdin())
	return nil
}

// defaultTranscriptPath puts the session database next to the config file.
func defaultTranscriptPath(cfgFile string) (string, error) {
	if cfgFile == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return "", err
		}
		cfgFile = p
	}
	return filepath.Join(filepath.Dir(cfgFile), "transcripts.db"), nil
}

// newAgent builds an agent from the loaded configuration. Confirmations are
// asked on the command's stdin and stderr, sharing one reader with the chat
// loop.
func (a *app) newAgent(cmd *cobra.Command) (*agent.Agent, error) {
	perms := permissions.NewManager(a.cfg.Permissions,
		permissions.WithPrompt(a.in, cmd.ErrOrStderr()),
		permissions.WithLogger(a.log),
	)
	opts := append([]agent.Option{agent.WithPermissions(perms)}, a.extra...)
	ag, err := agent.NewFromConfig(cmd.Context(), a.cfg, opts...)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("model", a.cfg.Model).Str("session", ag.SessionID()).Msg("agent ready")
	return ag, nil
}

// context is the per-call context sent with every prompt.
func (a *app) context() agent.ConversationContext {
	cc := agent.DefaultContext()
	if a.cfg.Workspace != "" {
		cc["workspace_path"] = a.cfg.Workspace
	}
	return cc
}
