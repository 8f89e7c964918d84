package store

import (
	"context"
	"sync"

	"github.com/Protocol-Lattice/cursor-agent/src/models"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]models.Message
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]models.Message)}
}

func (m *Memory) Append(_ context.Context, sessionID string, msgs ...models.Message) error {
	clean, err := prepare(sessionID, msgs)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[sessionID] = append(m.sessions[sessionID], clean...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, sessionID string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Message, len(m.sessions[sessionID]))
	copy(out, m.sessions[sessionID])
	return out, nil
}

func (m *Memory) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
