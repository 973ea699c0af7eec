package claude

import (
	"context"
	"sync"
)

// MockRunner is a test double for Runner that doesn't spawn real processes.
// Tests queue raw stream-json lines; each Send drains the queue into the
// returned channel and closes it, simulating one complete turn.
type MockRunner struct {
	mu sync.Mutex

	queued         []string
	sessionStarted bool
	stopped        bool
	interrupts     int
	prompts        []string

	// OnSend is invoked with the prompt before any lines are delivered.
	OnSend func(prompt string)
}

// NewMockRunner creates a mock runner for testing.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// QueueLines queues raw stream-json lines to be delivered by the next Send.
func (m *MockRunner) QueueLines(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, lines...)
}

// Send implements Runner.
func (m *MockRunner) Send(ctx context.Context, prompt string) (<-chan string, error) {
	m.mu.Lock()
	queue := m.queued
	m.queued = nil
	m.prompts = append(m.prompts, prompt)
	onSend := m.OnSend
	m.mu.Unlock()

	if onSend != nil {
		onSend(prompt)
	}

	ch := make(chan string, len(queue))
	go func() {
		defer close(ch)
		for _, line := range queue {
			select {
			case <-ctx.Done():
				return
			case ch <- line:
			}
		}
		m.mu.Lock()
		m.sessionStarted = true
		m.mu.Unlock()
	}()
	return ch, nil
}

// SessionStarted implements Runner.
func (m *MockRunner) SessionStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionStarted
}

// Interrupt implements Runner. It only counts invocations for assertions.
func (m *MockRunner) Interrupt() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupts++
	return nil
}

// Stop implements Runner.
func (m *MockRunner) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

// Interrupts returns how many times Interrupt was called (for test assertions).
func (m *MockRunner) Interrupts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interrupts
}

// Prompts returns the prompts passed to Send, in order (for test assertions).
func (m *MockRunner) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Stopped reports whether Stop was called (for test assertions).
func (m *MockRunner) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Ensure MockRunner implements Runner at compile time.
var _ Runner = (*MockRunner)(nil)
