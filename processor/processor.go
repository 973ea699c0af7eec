// Package processor turns raw CLI stream-json lines into normalized
// conversation events. Every event is appended to a replayable log and
// forwarded live to the webview, so that replaying the log into a fresh
// webview reproduces the original timeline exactly.
package processor

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/zhubert/plural-panel/claude"
)

// Poster forwards normalized events to the webview transport. Transient
// signals (login prompts) go through the same interface but bypass the log.
type Poster interface {
	PostMessage(kind Kind, data any)
}

// FileReader captures before/after file snapshots for edit tools.
// The default implementation reads from the local filesystem; tests inject
// a fake.
type FileReader interface {
	ReadFile(path string) (string, error)
}

type osFileReader struct{}

func (osFileReader) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Callbacks wires processor side effects to the owning panel.
// Every field is optional.
type Callbacks struct {
	// OnSessionID fires once per init message with the session identity.
	OnSessionID func(sessionID string)
	// OnComplete fires when a result message closes the turn, so the owner
	// can persist the conversation.
	OnComplete func(sessionID string, turnCostUSD float64)
	// OnToolResult fires after each edit-tool result for downstream analyses.
	OnToolResult func(toolName string, result ToolResultData)
}

// Processor is the event normalizer for one session. It is single-writer:
// ProcessLine must be called sequentially, in CLI emission order, and never
// concurrently with itself or with state swaps (Reset, LoadConversation).
type Processor struct {
	eventLog *Log
	totals   Totals
	poster   Poster
	cb       Callbacks
	files    FileReader
	classify claude.ResultClassifier
	log      *slog.Logger

	sessionID string
	pending   map[string]ToolUseData
	lastStamp time.Time
	now       func() time.Time
}

// New creates a processor with an empty log and zeroed totals.
func New(poster Poster, cb Callbacks, log *slog.Logger) *Processor {
	return &Processor{
		eventLog: NewLog(),
		poster:   poster,
		cb:       cb,
		files:    osFileReader{},
		classify: claude.ClassifyResultText,
		log:      log,
		pending:  make(map[string]ToolUseData),
		now:      time.Now,
	}
}

// SetFileReader replaces the snapshot reader (tests).
func (p *Processor) SetFileReader(r FileReader) {
	p.files = r
}

// SetClock replaces the timestamp source (tests).
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// SetClassifier replaces the result-text classifier.
func (p *Processor) SetClassifier(fn claude.ResultClassifier) {
	p.classify = fn
}

// Log returns the conversation log.
func (p *Processor) Log() *Log {
	return p.eventLog
}

// Totals returns a snapshot of the session accumulator.
func (p *Processor) Totals() Totals {
	return p.totals
}

// SessionID returns the current session id, if one has been observed.
func (p *Processor) SessionID() string {
	return p.sessionID
}

// ProcessLine normalizes one raw CLI line. It never returns an error: garbage
// lines are skipped, partial messages degrade to best-effort events.
func (p *Processor) ProcessLine(line string) {
	msg := claude.DecodeStreamLine(line, p.log)
	if msg == nil {
		return
	}

	switch msg.Type {
	case "system":
		p.handleSystem(msg)
	case "assistant":
		p.handleAssistant(msg)
	case "user":
		p.handleUser(msg)
	case "result":
		p.handleResult(msg)
	default:
		p.log.Debug("ignoring unrecognized message type", "type", msg.Type)
	}
}

// RecordUserInput logs and forwards the user's side of the timeline so replay
// shows both halves of the exchange.
func (p *Processor) RecordUserInput(text string) {
	p.emit(KindUserInput, TextData{Text: text})
}

// TruncateAfter drops every logged event after index, for the edit-message
// and regenerate flows. Pending correlation state is discarded with them.
func (p *Processor) TruncateAfter(index int) {
	p.eventLog.Truncate(index)
	clear(p.pending)
}

// Reset clears all per-session state for a new session.
func (p *Processor) Reset() {
	p.eventLog.Reset()
	p.totals.Reset()
	clear(p.pending)
	p.sessionID = ""
	p.lastStamp = time.Time{}
}

// LoadConversation atomically replaces session state with a saved conversation
// and replays every event through the live posting path, preserving original
// timestamps. The caller must not interleave this with ProcessLine.
func (p *Processor) LoadConversation(sessionID string, costUSD float64, tokensInput, tokensOutput int, events []Event) {
	p.Reset()
	p.sessionID = sessionID
	p.totals.CostUSD = costUSD
	p.totals.TokensInput = tokensInput
	p.totals.TokensOutput = tokensOutput

	for _, ev := range events {
		p.eventLog.Append(ev)
		p.poster.PostMessage(ev.MessageType, ev.Data)
		if ev.Timestamp.After(p.lastStamp) {
			p.lastStamp = ev.Timestamp
		}
	}
}

func (p *Processor) handleSystem(msg *claude.StreamMessage) {
	switch msg.Subtype {
	case "init":
		p.sessionID = msg.SessionID
		names := make([]string, 0, len(msg.MCPServers))
		for _, s := range msg.MCPServers {
			names = append(names, s.Name)
		}
		p.emit(KindSessionInfo, SessionInfoData{
			SessionID:  msg.SessionID,
			Model:      msg.Model,
			Tools:      msg.Tools,
			MCPServers: names,
		})
		if p.cb.OnSessionID != nil {
			p.cb.OnSessionID(msg.SessionID)
		}

	case "status":
		p.emit(KindCompacting, CompactingData{IsCompacting: msg.Status == "compacting"})

	case "compact_boundary":
		p.totals.ResetTokens()
		data := CompactBoundaryData{}
		if msg.CompactMetadata != nil {
			data.Trigger = msg.CompactMetadata.Trigger
			data.PreCompactionTokens = msg.CompactMetadata.PreTokens
		}
		p.emit(KindCompactBoundary, data)

	default:
		p.log.Debug("ignoring system message", "subtype", msg.Subtype)
	}
}

func (p *Processor) handleAssistant(msg *claude.StreamMessage) {
	if u := msg.Message.Usage; u != nil {
		turnIn, turnOut := p.totals.AddUsage(u)
		p.emit(KindUpdateTokens, TokenUpdateData{
			TotalTokensInput:    p.totals.TokensInput,
			TotalTokensOutput:   p.totals.TokensOutput,
			TurnTokensInput:     turnIn,
			TurnTokensOutput:    turnOut,
			CacheCreationTokens: u.CacheCreationInputTokens,
			CacheReadTokens:     u.CacheReadInputTokens,
		})
	}

	for _, block := range msg.Message.Content {
		switch block.Type {
		case "text":
			if text := strings.TrimSpace(block.Text); text != "" {
				p.emit(KindOutput, TextData{Text: text})
			}
		case "thinking":
			if text := strings.TrimSpace(block.Thinking); text != "" {
				p.emit(KindThinking, TextData{Text: text})
			}
		case "tool_use":
			p.handleToolUse(block)
		}
	}
}

// handleToolUse builds the pending correlation record for a tool call,
// enriching edit tools with a before snapshot and line offsets, and emits the
// toolUse event. The record must be in the log before the result arrives so
// the positional fallback can find it at the tail.
func (p *Processor) handleToolUse(block claude.ContentBlock) {
	rawInput := claude.DecodeToolInput(block.Input)

	if block.Name == "TodoWrite" {
		if items, err := claude.ParseTodoWriteInput(block.Input); err != nil {
			p.log.Warn("failed to parse TodoWrite input", "error", err)
		} else {
			pending, inProgress, completed := claude.CountTodosByStatus(items)
			p.log.Debug("todo list updated",
				"pending", pending, "inProgress", inProgress, "completed", completed)
			p.emit(KindTodosUpdate, TodosUpdateData{Todos: items})
		}
	}

	data := ToolUseData{
		ToolUseID:    block.ID,
		ToolName:     block.Name,
		InputSummary: claude.ToolInputSummary(block.Name, block.Input),
		RawInput:     rawInput,
	}

	if claude.IsEditTool(block.Name) {
		if path := claude.FilePathFromInput(block.Name, rawInput); path != "" {
			before, err := p.files.ReadFile(path)
			if err != nil {
				p.log.Debug("before snapshot read failed", "path", path, "error", err)
				before = ""
			}
			data.FileContentBefore = before

			switch block.Name {
			case "Edit":
				if oldStr, ok := rawInput["old_string"].(string); ok {
					data.StartLine = startLineOf(before, oldStr)
				}
			case "MultiEdit":
				data.StartLines = multiEditStartLines(before, rawInput)
			}
		}
	}

	if block.ID != "" {
		p.pending[block.ID] = data
	}
	p.emit(KindToolUse, data)
}

func (p *Processor) handleUser(msg *claude.StreamMessage) {
	for _, block := range msg.Message.Content {
		if block.Type != "tool_result" && block.ToolUseID == "" {
			continue
		}

		result := ToolResultData{
			ToolUseID: block.ToolUseID,
			Content:   claude.ToolResultText(block.Content),
			IsError:   block.IsError,
		}

		// Pair by explicit id when possible; fall back to the last toolUse
		// in the log. An unmatched result is still emitted, just unpaired.
		var paired ToolUseData
		found := false
		if block.ToolUseID != "" {
			if rec, ok := p.pending[block.ToolUseID]; ok {
				paired = rec
				found = true
				delete(p.pending, block.ToolUseID)
			}
		}
		if !found {
			if rec, ok := p.eventLog.LastToolUse(); ok {
				paired = rec
				found = true
				result.PairedByPosition = true
			}
		}
		if found {
			result.ToolName = paired.ToolName
			result.RawInput = paired.RawInput
			result.FileContentBefore = paired.FileContentBefore
			result.StartLine = paired.StartLine
			result.StartLines = paired.StartLines
		}

		result.Hidden = claude.IsQuietTool(result.ToolName) && !block.IsError

		if claude.IsEditTool(result.ToolName) && !block.IsError {
			if path := claude.FilePathFromInput(result.ToolName, result.RawInput); path != "" {
				after, err := p.files.ReadFile(path)
				if err != nil {
					p.log.Debug("after snapshot read failed", "path", path, "error", err)
				} else {
					result.FileContentAfter = after
				}
			}
		}

		p.emit(KindToolResult, result)

		if claude.IsEditTool(result.ToolName) && p.cb.OnToolResult != nil {
			p.cb.OnToolResult(result.ToolName, result)
		}
	}
}

func (p *Processor) handleResult(msg *claude.StreamMessage) {
	if p.classify(msg.Result) == claude.ResultAuthFailure {
		p.log.Warn("authentication failure reported by CLI")
		// Transient signal: never logged, never replayed
		p.poster.PostMessage(KindLoginRequired, LoginRequiredData{Message: msg.Result})
		return
	}

	if msg.SessionID != "" {
		p.sessionID = msg.SessionID
		p.emit(KindSessionInfo, SessionInfoData{SessionID: msg.SessionID})
	}

	p.totals.AddCost(msg.TotalCostUSD)
	p.emit(KindUpdateTotals, TotalsData{
		TotalCostUSD: p.totals.CostUSD,
		RequestCount: p.totals.RequestCount,
		TurnCostUSD:  msg.TotalCostUSD,
		DurationMs:   msg.DurationMs,
		NumTurns:     msg.NumTurns,
	})

	clear(p.pending)

	if p.cb.OnComplete != nil {
		p.cb.OnComplete(p.sessionID, msg.TotalCostUSD)
	}
}

// emit appends the event to the log and forwards it live, in that order.
// Timestamps are monotonically non-decreasing within a session.
func (p *Processor) emit(kind Kind, data any) {
	t := p.now()
	if t.Before(p.lastStamp) {
		t = p.lastStamp
	}
	p.lastStamp = t

	p.eventLog.Append(Event{Timestamp: t, MessageType: kind, Data: data})
	p.poster.PostMessage(kind, data)
}

// startLineOf returns the 1-based line of the first occurrence of needle in
// the snapshot, or 1 when the needle is absent.
func startLineOf(snapshot, needle string) int {
	idx := strings.Index(snapshot, needle)
	if idx < 0 {
		return 1
	}
	return strings.Count(snapshot[:idx], "\n") + 1
}

// multiEditStartLines computes one offset per edit, skipping edits whose
// old_string is not a string.
func multiEditStartLines(snapshot string, rawInput map[string]any) []int {
	edits, ok := rawInput["edits"].([]any)
	if !ok {
		return nil
	}
	var lines []int
	for _, e := range edits {
		edit, ok := e.(map[string]any)
		if !ok {
			continue
		}
		oldStr, ok := edit["old_string"].(string)
		if !ok {
			continue
		}
		lines = append(lines, startLineOf(snapshot, oldStr))
	}
	return lines
}
