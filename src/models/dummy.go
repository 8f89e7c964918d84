package models

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DummyProvider answers without any network access. Scripted responses are
// returned in order; once exhausted it echoes the last user message after
// Prefix. Every request is recorded for inspection.
type DummyProvider struct {
	Prefix string

	mu       sync.Mutex
	script   []ChatResponse
	err      error
	requests []ChatRequest
}

func NewDummyProvider(prefix string, script ...ChatResponse) *DummyProvider {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyProvider{Prefix: prefix, script: script}
}

// FailWith makes every following Chat call return err.
func (d *DummyProvider) FailWith(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *DummyProvider) Name() string { return "dummy" }

func (d *DummyProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, cloneRequest(req))
	if d.err != nil {
		return nil, d.err
	}
	if len(d.script) > 0 {
		next := d.script[0]
		d.script = d.script[1:]
		return &next, nil
	}

	last := "<empty prompt>"
	for i := len(req.Messages) - 1; i >= 0; i-- {
		m := req.Messages[i]
		if m.Role != RoleUser {
			continue
		}
		if s := strings.TrimSpace(m.Content); s != "" {
			last = s
		}
		break
	}
	return &ChatResponse{Content: fmt.Sprintf("%s %s", d.Prefix, last), StopReason: "stop"}, nil
}

// Requests returns a copy of every request received so far.
func (d *DummyProvider) Requests() []ChatRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ChatRequest(nil), d.requests...)
}

func cloneRequest(req ChatRequest) ChatRequest {
	req.Messages = append([]Message(nil), req.Messages...)
	req.Tools = append([]ToolDefinition(nil), req.Tools...)
	return req
}

var _ Provider = (*DummyProvider)(nil)
