package processor

import (
	"time"

	"github.com/zhubert/plural-panel/claude"
)

// Kind identifies what a normalized event represents. The set is closed; the
// webview switches on it to decide how to render each timeline entry.
type Kind string

const (
	KindOutput          Kind = "output"
	KindThinking        Kind = "thinking"
	KindToolUse         Kind = "toolUse"
	KindToolResult      Kind = "toolResult"
	KindSessionInfo     Kind = "sessionInfo"
	KindUpdateTokens    Kind = "updateTokens"
	KindUpdateTotals    Kind = "updateTotals"
	KindCompacting      Kind = "compacting"
	KindCompactBoundary Kind = "compactBoundary"
	KindTodosUpdate     Kind = "todosUpdate"
	KindUserInput       Kind = "userInput"

	// KindLoginRequired is a transient signal: posted live so the webview can
	// show a login prompt, never appended to the log, never replayed.
	KindLoginRequired Kind = "loginRequired"
)

// Event is one normalized conversation event. Timestamp is assigned at
// normalization time and is monotonically non-decreasing within a session.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	MessageType Kind      `json:"messageType"`
	Data        any       `json:"data"`
}

// TextData carries output, thinking, and userInput text.
type TextData struct {
	Text string `json:"text"`
}

// SessionInfoData carries session identity from init and result messages.
type SessionInfoData struct {
	SessionID  string   `json:"sessionId"`
	Model      string   `json:"model,omitempty"`
	Tools      []string `json:"tools,omitempty"`
	MCPServers []string `json:"mcpServers,omitempty"`
}

// TokenUpdateData carries running token totals plus this-turn deltas.
// Cache counts are surfaced separately because they are billed differently.
type TokenUpdateData struct {
	TotalTokensInput    int `json:"totalTokensInput"`
	TotalTokensOutput   int `json:"totalTokensOutput"`
	TurnTokensInput     int `json:"turnTokensInput"`
	TurnTokensOutput    int `json:"turnTokensOutput"`
	CacheCreationTokens int `json:"cacheCreationTokens"`
	CacheReadTokens     int `json:"cacheReadTokens"`
}

// TotalsData carries running cost totals plus this-turn stats from a result.
type TotalsData struct {
	TotalCostUSD float64 `json:"totalCostUsd"`
	RequestCount int     `json:"requestCount"`
	TurnCostUSD  float64 `json:"turnCostUsd"`
	DurationMs   int     `json:"durationMs"`
	NumTurns     int     `json:"numTurns"`
}

// CompactingData signals that the CLI is compacting context.
type CompactingData struct {
	IsCompacting bool `json:"isCompacting"`
}

// CompactBoundaryData marks a completed compaction. Token counters restart
// from zero after this point; cost does not.
type CompactBoundaryData struct {
	Trigger             string `json:"trigger"`
	PreCompactionTokens int    `json:"preCompactionTokens"`
}

// ToolUseData is the payload of a toolUse event and doubles as the pending
// correlation record until the matching tool_result arrives.
type ToolUseData struct {
	ToolUseID    string         `json:"toolUseId,omitempty"`
	ToolName     string         `json:"toolName"`
	InputSummary string         `json:"inputSummary,omitempty"`
	RawInput     map[string]any `json:"rawInput,omitempty"`

	// Edit-tool enrichment for diff rendering
	FileContentBefore string `json:"fileContentBefore,omitempty"`
	StartLine         int    `json:"startLine,omitempty"`
	StartLines        []int  `json:"startLines,omitempty"`
}

// ToolResultData is the payload of a toolResult event. ToolName and RawInput
// are inherited from the paired toolUse; both stay empty for orphaned results.
type ToolResultData struct {
	ToolUseID string         `json:"toolUseId,omitempty"`
	ToolName  string         `json:"toolName,omitempty"`
	RawInput  map[string]any `json:"rawInput,omitempty"`
	Content   string         `json:"content"`
	IsError   bool           `json:"isError"`

	// Hidden marks low-value confirmations (quiet tools, no error) that the
	// timeline suppresses by default.
	Hidden bool `json:"hidden"`

	FileContentBefore string `json:"fileContentBefore,omitempty"`
	FileContentAfter  string `json:"fileContentAfter,omitempty"`
	StartLine         int    `json:"startLine,omitempty"`
	StartLines        []int  `json:"startLines,omitempty"`

	// PairedByPosition is true when the pairing fell back to the last toolUse
	// in the log because the result carried no usable correlation id.
	PairedByPosition bool `json:"pairedByPosition,omitempty"`
}

// TodosUpdateData carries the full todo list from a TodoWrite call.
type TodosUpdateData struct {
	Todos []claude.TodoItem `json:"todos"`
}

// LoginRequiredData asks the webview to show a login prompt.
type LoginRequiredData struct {
	Message string `json:"message"`
}
