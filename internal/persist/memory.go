package persist

import (
	"context"
	"sync"
)

// MemoryBackend keeps blobs in a map. It records every write in order and
// can be told to fail, which is what the store tests need.
type MemoryBackend struct {
	mu       sync.Mutex
	blobs    map[string]string
	writes   []string
	readErr  error
	writeErr error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string]string)}
}

func (m *MemoryBackend) Read(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.blobs[key], nil
}

func (m *MemoryBackend) Write(_ context.Context, key, blob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.blobs[key] = blob
	m.writes = append(m.writes, blob)
	return nil
}

// Put stores a blob directly, bypassing the write log.
func (m *MemoryBackend) Put(key, blob string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = blob
}

// Get returns the current blob for key.
func (m *MemoryBackend) Get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobs[key]
}

// Writes returns a copy of every successful write, oldest first.
func (m *MemoryBackend) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

func (m *MemoryBackend) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

func (m *MemoryBackend) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}
