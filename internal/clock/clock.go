package clock

import (
    "sync"
    "time"
)

// Clock lets services read the current time without calling time.Now
// directly, so booking date checks and audit stamps are reproducible.
type Clock interface {
    Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now in UTC.
func NewSystem() Clock {
    return systemClock{}
}

func (systemClock) Now() time.Time {
    return time.Now().UTC()
}

// Manual is a clock that only moves when told to.
type Manual struct {
    mu  sync.Mutex
    now time.Time
}

// NewFixed returns a manual clock frozen at t.
func NewFixed(t time.Time) *Manual {
    return &Manual{now: t.UTC()}
}

func (m *Manual) Now() time.Time {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
    m.mu.Lock()
    m.now = m.now.Add(d)
    m.mu.Unlock()
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
    m.mu.Lock()
    m.now = t.UTC()
    m.mu.Unlock()
}
