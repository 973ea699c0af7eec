// Package panel glues one chat session together: the CLI runner, the event
// processor, and the conversation store, with a buffered outbound channel the
// transport layer drains.
package panel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/zhubert/plural-panel/claude"
	"github.com/zhubert/plural-panel/conversation"
	"github.com/zhubert/plural-panel/processor"
)

// Message is one outbound event as delivered to the webview transport.
type Message struct {
	Type processor.Kind `json:"type"`
	Data any            `json:"data"`
}

// RunnerFactory creates a runner for a session. resume is true when the
// session already exists on the CLI side and should be resumed, not created.
type RunnerFactory func(sessionID string, resume bool) claude.Runner

const outBufferSize = 256

// Panel owns one conversation. All processor access is serialized: prompts
// are pumped line by line under the mutex, and state swaps (new session,
// load, truncate) are rejected while a turn is in flight.
type Panel struct {
	ID string

	store     *conversation.Store
	newRunner RunnerFactory
	log       *slog.Logger
	out       chan Message

	mu     sync.Mutex
	proc   *processor.Processor
	runner claude.Runner
	busy   bool
	closed bool
}

// New creates a panel with a fresh session.
func New(store *conversation.Store, factory RunnerFactory, log *slog.Logger) *Panel {
	p := &Panel{
		ID:        uuid.NewString(),
		store:     store,
		newRunner: factory,
		log:       log,
		out:       make(chan Message, outBufferSize),
	}
	p.proc = processor.New(p, processor.Callbacks{
		OnSessionID: func(sessionID string) {
			// The CLI echoes the id we pinned with --session-id; a mismatch
			// means the turn is running against a different session.
			if sessionID != p.ID {
				log.Warn("session id mismatch", "panelID", p.ID, "sessionID", sessionID)
			}
		},
		OnComplete: p.persist,
	}, log)
	p.runner = factory(p.ID, false)
	return p
}

// Out returns the outbound event channel. It is closed by Close.
func (p *Panel) Out() <-chan Message {
	return p.out
}

// PostMessage implements processor.Poster. Posting never blocks the
// processing loop: when the transport falls behind the buffer, events are
// dropped from the live feed but stay in the log for replay.
func (p *Panel) PostMessage(kind processor.Kind, data any) {
	select {
	case p.out <- Message{Type: kind, Data: data}:
	default:
		p.log.Warn("outbound buffer full, dropping live event", "kind", kind)
	}
}

// SendPrompt runs one turn: records the user's input, invokes the runner, and
// pumps every stream line through the processor. It blocks until the turn
// completes or ctx is cancelled.
func (p *Panel) SendPrompt(ctx context.Context, prompt string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("panel closed")
	}
	if p.busy {
		p.mu.Unlock()
		return fmt.Errorf("turn already in progress")
	}
	p.busy = true
	runner := p.runner
	p.proc.RecordUserInput(prompt)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	lines, err := runner.Send(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to start turn: %w", err)
	}

	for line := range lines {
		p.mu.Lock()
		p.proc.ProcessLine(line)
		p.mu.Unlock()
	}
	return nil
}

// Interrupt aborts the in-flight turn, if any. Events already processed stay.
func (p *Panel) Interrupt() error {
	p.mu.Lock()
	runner := p.runner
	p.mu.Unlock()
	return runner.Interrupt()
}

// NewSession discards all session state and starts over with a fresh session
// id and runner.
func (p *Panel) NewSession() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.busy {
		return fmt.Errorf("turn in progress")
	}
	p.runner.Stop()
	p.ID = uuid.NewString()
	p.proc.Reset()
	p.runner = p.newRunner(p.ID, false)
	p.log.Info("started new session", "panelID", p.ID)
	return nil
}

// LoadConversation replaces session state with a saved conversation and
// replays it through the outbound channel. The CLI session is resumed on the
// next prompt.
func (p *Panel) LoadConversation(sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.busy {
		return fmt.Errorf("turn in progress")
	}

	conv, err := p.store.Load(sessionID)
	if err != nil {
		return err
	}

	p.runner.Stop()
	p.ID = conv.SessionID
	p.runner = p.newRunner(conv.SessionID, true)
	p.proc.LoadConversation(conv.SessionID, conv.TotalCostUSD, conv.TotalTokensInput, conv.TotalTokensOutput, conv.Messages)
	p.log.Info("loaded conversation", "sessionID", conv.SessionID, "events", len(conv.Messages))
	return nil
}

// TruncateAfter drops every event after index, for edit-and-regenerate flows.
func (p *Panel) TruncateAfter(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.busy {
		return fmt.Errorf("turn in progress")
	}
	p.proc.TruncateAfter(index)
	return nil
}

// ReplaySnapshot returns the full logged timeline for a newly attached
// client.
func (p *Panel) ReplaySnapshot() []processor.ReplayMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proc.Log().ReplayAll()
}

// Totals returns the current session accumulator snapshot.
func (p *Panel) Totals() processor.Totals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proc.Totals()
}

// Close stops the runner and closes the outbound channel. The panel cannot be
// used afterwards.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.runner.Stop()
	close(p.out)
}

// persist saves the conversation after each completed turn. Runs inside the
// processing loop, so the panel mutex is already held by the caller.
func (p *Panel) persist(sessionID string, turnCostUSD float64) {
	if sessionID == "" {
		return
	}
	events := p.proc.Log().Events()
	if len(events) == 0 {
		return
	}
	totals := p.proc.Totals()
	conv := conversation.Conversation{
		SessionID:         sessionID,
		TotalCostUSD:      totals.CostUSD,
		TotalTokensInput:  totals.TokensInput,
		TotalTokensOutput: totals.TokensOutput,
		Messages:          events,
	}
	if err := p.store.Save(conv); err != nil {
		p.log.Error("failed to save conversation", "sessionID", sessionID, "error", err)
		return
	}
	p.log.Debug("conversation saved", "sessionID", sessionID, "turnCost", turnCostUSD)
}

// Ensure Panel satisfies the processor's posting interface.
var _ processor.Poster = (*Panel)(nil)
