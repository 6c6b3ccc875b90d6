package blob

import (
	"context"
	"sync"
)

// Memory is an in-memory Handle used in tests and ephemeral sessions.
//
// FailWrites makes every Write return the supplied error without touching the
// stored bytes, which is how the persistence engine's rollback behavior is
// exercised.
type Memory struct {
	mu         sync.Mutex
	data       []byte
	exists     bool
	writeErr   error
	writeCount int
}

// NewMemory returns an empty in-memory handle.
func NewMemory() *Memory { return &Memory{} }

// NewMemorySeeded returns an in-memory handle pre-loaded with data.
func NewMemorySeeded(data []byte) *Memory {
	return &Memory{data: append([]byte(nil), data...), exists: true}
}

// FailWrites makes subsequent writes fail with err; pass nil to heal.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// WriteCount reports how many successful writes have happened.
func (m *Memory) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCount
}

// Bytes returns a copy of the stored contents.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

func (m *Memory) Read(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return nil, ErrNotExist
	}
	return append([]byte(nil), m.data...), nil
}

func (m *Memory) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = append([]byte(nil), data...)
	m.exists = true
	m.writeCount++
	return nil
}
