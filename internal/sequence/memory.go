package sequence

import (
    "context"
    "sync"
)

// Memory is an in-process generator for tests and single node demos.
type Memory struct {
    mu   sync.Mutex
    vals map[string]int64
}

// NewMemory returns an empty in-process generator.
func NewMemory() *Memory { return &Memory{vals: map[string]int64{}} }

// Next increments the counter, creating it at 1.
func (m *Memory) Next(_ context.Context, key string) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.vals[key]++
    return m.vals[key], nil
}
