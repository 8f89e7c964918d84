package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
	"unicode/utf8"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

const (
	defaultCommandTimeout = 60 * time.Second
	maxCommandTimeout     = 10 * time.Minute
	maxCommandOutput      = 64 << 10
)

type runTerminalCommand struct{ log *logging.Logger }

type runCommandArgs struct {
	Command        string `json:"command"`
	Explanation    string `json:"explanation"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// CommandResult is the structured result of run_terminal_command.
type CommandResult struct {
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ExitCode  int    `json:"exit_code"`
	Truncated bool   `json:"truncated,omitempty"`
}

func (t *runTerminalCommand) Spec() Spec {
	return Spec{
		Name:        "run_terminal_command",
		Description: "Run a shell command in the workspace and return its output and exit code.",
		InputSchema: object(map[string]any{
			"command":         prop("string", "Command line passed to sh -c."),
			"explanation":     prop("string", "Why the command is being run."),
			"timeout_seconds": prop("integer", "Time limit in seconds (default 60, max 600)."),
		}, "command"),
	}
}

func (t *runTerminalCommand) Invoke(ctx context.Context, req Request) (Response, error) {
	var args runCommandArgs
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	if args.Command == "" {
		return Response{}, errors.New("command is empty")
	}
	if err := permit(req, "run_terminal_command", map[string]any{"command": args.Command, "explanation": args.Explanation}); err != nil {
		return Response{}, err
	}
	dir, err := workspaceRoot(req)
	if err != nil {
		return Response{}, err
	}

	timeout := defaultCommandTimeout
	if args.TimeoutSeconds > 0 {
		secs := min(args.TimeoutSeconds, int(maxCommandTimeout/time.Second))
		timeout = time.Duration(secs) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", args.Command)
	cmd.Dir = dir
	cmd.WaitDelay = 2 * time.Second
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.log.Info().Str("command", args.Command).Str("dir", dir).Msg("running command")
	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Response{}, fmt.Errorf("command timed out after %s", timeout)
	}

	res := CommandResult{ExitCode: 0}
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return Response{}, fmt.Errorf("run command: %w", runErr)
	}
	var cut1, cut2 bool
	res.Stdout, cut1 = truncate(stdout.String(), maxCommandOutput)
	res.Stderr, cut2 = truncate(stderr.String(), maxCommandOutput)
	res.Truncated = cut1 || cut2
	return JSON(res)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n], true
}
