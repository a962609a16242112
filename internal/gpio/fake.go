package gpio

import (
	"sync"

	"github.com/sweeney/wheel-remote/internal/logic"
)

// Transition records one Set call for test assertions.
type Transition struct {
	Output logic.OutputID
	Active bool
}

// FakeDriver is a test double that records output transitions.
type FakeDriver struct {
	mu sync.Mutex

	// Transitions contains every Set call in order.
	Transitions []Transition

	// levels holds the current logical level per output.
	levels map[logic.OutputID]bool

	// SetError, if set, will be returned by Set()
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{levels: make(map[logic.OutputID]bool)}
}

// Set records the transition and the resulting level.
func (f *FakeDriver) Set(id logic.OutputID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}

	f.Transitions = append(f.Transitions, Transition{Output: id, Active: active})
	f.levels[id] = active
	return nil
}

// Active returns the current logical level of an output.
func (f *FakeDriver) Active(id logic.OutputID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[id]
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
