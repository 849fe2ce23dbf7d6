package notify

import (
	"context"
	"sync"

	"tvp-go/internal/tv"
)

// Memory records every notification it receives. Safe for concurrent use.
type Memory struct {
	mu   sync.Mutex
	uris []string
}

var _ tv.Notifier = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Notify(_ context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uris = append(m.uris, uri)
	return nil
}

// URIs returns the notified identifiers in delivery order.
func (m *Memory) URIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.uris...)
}

// Reset forgets everything recorded so far.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uris = nil
}
