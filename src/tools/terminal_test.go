package tools

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTerminalCommand(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "hello.txt", "hi")

	resp, err := invoke(t, &runTerminalCommand{}, ws, map[string]any{"command": "cat hello.txt; echo oops >&2; exit 3"})
	require.NoError(t, err)
	res := resp.Result.(CommandResult)
	assert.Equal(t, "hi", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunTerminalCommandTimeout(t *testing.T) {
	_, err := invoke(t, &runTerminalCommand{}, t.TempDir(), map[string]any{"command": "sleep 5", "timeout_seconds": 1})
	assert.ErrorContains(t, err, "timed out")
}

func TestRunTerminalCommandHugeTimeoutIsClamped(t *testing.T) {
	resp, err := invoke(t, &runTerminalCommand{}, t.TempDir(), map[string]any{"command": "echo ok", "timeout_seconds": 1 << 40})
	require.NoError(t, err)
	assert.Equal(t, "ok\n", resp.Result.(CommandResult).Stdout)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	out, cut := truncate("héllo", 2)
	assert.True(t, cut)
	assert.Equal(t, "h", out)

	out, cut = truncate("héllo", 3)
	assert.True(t, cut)
	assert.Equal(t, "hé", out)

	out, cut = truncate("hi", 5)
	assert.False(t, cut)
	assert.Equal(t, "hi", out)
}

func TestRunTerminalCommandPermission(t *testing.T) {
	var details map[string]any
	perm := permitFunc(func(op string, d map[string]any) bool {
		details = d
		return false
	})
	_, err := (&runTerminalCommand{}).Invoke(t.Context(), Request{
		Workspace:   t.TempDir(),
		Permissions: perm,
		Arguments:   map[string]any{"command": "rm -rf build"},
	})
	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.Equal(t, "rm -rf build", details["command"])
}

func TestRunTerminalCommandEmpty(t *testing.T) {
	_, err := invoke(t, &runTerminalCommand{}, t.TempDir(), map[string]any{})
	assert.Error(t, err)
}
