package service

import (
	"context"
	"sync"

	"tablemerge/internal/log"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter decouples services from their front end
// ─────────────────────────────────────────────────────────────

// EventEmitter receives service events (run completed, run failed, ...).
// The CLI logs them; the MCP server forwards nothing. Tests record them.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Event names.
const (
	EventMergeCompleted = "merge:completed"
	EventMergeFailed    = "merge:failed"
	EventMergeSkipped   = "merge:skipped"
)

// LogEmitter writes every event to the context logger.
type LogEmitter struct{}

func (LogEmitter) Emit(ctx context.Context, event string, data any) {
	log.G(ctx).WithField("event", event).Debugf("%+v", data)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Snapshot returns a copy of the events recorded so far.
func (m *MockEmitter) Snapshot() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.Events...)
}
