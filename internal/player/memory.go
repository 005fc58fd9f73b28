package player

import (
	"context"
	"sync"
)

// Memory is an in-process Backend that records every call.
// It backs dry runs and tests.
type Memory struct {
	mu       sync.Mutex
	volume   int
	position float64
	paused   bool
	closed   bool
	errs     map[string]error
	calls    []string
}

// NewMemory returns a Memory backend at the given volume and position.
func NewMemory(volume int, position float64) *Memory {
	return &Memory{
		volume:   volume,
		position: position,
		errs:     make(map[string]error),
	}
}

// FailOn makes the named operation return err until cleared with a nil err.
// Operation names match the method names, e.g. "Volume" or "SetPosition".
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// Calls returns the operations invoked so far, in order.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Paused reports the current pause state.
func (m *Memory) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Closed reports whether Close has been called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Memory) record(op string) error {
	m.calls = append(m.calls, op)
	if m.closed {
		return ErrClosed
	}
	return m.errs[op]
}

func (m *Memory) Volume(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Volume"); err != nil {
		return 0, err
	}
	return m.volume, nil
}

func (m *Memory) SetVolume(ctx context.Context, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetVolume"); err != nil {
		return err
	}
	m.volume = percent
	return nil
}

func (m *Memory) Position(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Position"); err != nil {
		return 0, err
	}
	return m.position, nil
}

func (m *Memory) SetPosition(ctx context.Context, seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetPosition"); err != nil {
		return err
	}
	m.position = seconds
	return nil
}

func (m *Memory) TogglePause(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("TogglePause"); err != nil {
		return err
	}
	m.paused = !m.paused
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
