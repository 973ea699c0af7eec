package claude

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// StreamUsage holds token usage counts from an assistant message or result
type StreamUsage struct {
	InputTokens              int `json:"input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	OutputTokens             int `json:"output_tokens"`
}

// ContentBlock is one entry in a message's content array
type ContentBlock struct {
	Type      string          `json:"type"`                  // "text", "thinking", "tool_use", "tool_result"
	ID        string          `json:"id,omitempty"`          // tool use ID (for tool_use)
	Text      string          `json:"text,omitempty"`        // text blocks
	Thinking  string          `json:"thinking,omitempty"`    // thinking blocks
	Name      string          `json:"name,omitempty"`        // tool name (for tool_use)
	Input     json.RawMessage `json:"input,omitempty"`       // tool input (for tool_use)
	ToolUseID string          `json:"tool_use_id,omitempty"` // tool use ID reference (for tool_result)
	IsError   bool            `json:"is_error,omitempty"`    // tool_result error flag
	Content   json.RawMessage `json:"content,omitempty"`     // tool result content (string, array, or object)
}

// MCPServerInfo describes one MCP server reported in the init message
type MCPServerInfo struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// CompactMetadata carries the payload of a system/compact_boundary message
type CompactMetadata struct {
	Trigger   string `json:"trigger"`    // "auto" or "manual"
	PreTokens int    `json:"pre_tokens"` // context tokens before compaction
}

// StreamMessage represents one JSON line from the CLI's stream-json output.
// The shape is a union tagged by Type; every nested field is optional and
// decoded defensively — a missing field is a zero value, never an error.
type StreamMessage struct {
	Type    string `json:"type"`    // "system", "assistant", "user", "result"
	Subtype string `json:"subtype"` // "init", "status", "compact_boundary", "success", ...
	Message struct {
		ID      string         `json:"id,omitempty"`
		Model   string         `json:"model,omitempty"`
		Content []ContentBlock `json:"content"`
		Usage   *StreamUsage   `json:"usage,omitempty"`
	} `json:"message"`

	// system message fields
	SessionID       string           `json:"session_id,omitempty"`
	Model           string           `json:"model,omitempty"`
	Tools           []string         `json:"tools,omitempty"`
	MCPServers      []MCPServerInfo  `json:"mcp_servers,omitempty"`
	Status          string           `json:"status,omitempty"` // e.g. "compacting"
	CompactMetadata *CompactMetadata `json:"compact_metadata,omitempty"`

	// result message fields
	Result        string       `json:"result,omitempty"`
	DurationMs    int          `json:"duration_ms,omitempty"`
	DurationAPIMs int          `json:"duration_api_ms,omitempty"`
	NumTurns      int          `json:"num_turns,omitempty"`
	TotalCostUSD  float64      `json:"total_cost_usd,omitempty"`
	Usage         *StreamUsage `json:"usage,omitempty"`
}

// DecodeStreamLine parses one line of CLI stream-json output.
// Returns nil for blank lines, non-JSON lines (the CLI with --verbose can emit
// informational text on stdout), and JSON without a recognized type tag.
func DecodeStreamLine(line string, log *slog.Logger) *StreamMessage {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if !strings.HasPrefix(line, "{") {
		log.Debug("skipping non-JSON line from CLI", "line", truncateForLog(line))
		return nil
	}

	var msg StreamMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		log.Warn("failed to parse stream message", "error", err, "line", truncateForLog(line))
		return nil
	}

	if msg.Type == "" {
		log.Warn("unrecognized JSON message without type tag", "line", truncateForLog(line))
		return nil
	}

	return &msg
}

// ToolResultText renders a tool_result content field as display text.
// String content passes through; an array of content blocks concatenates its
// text entries; any other object shape is serialized as indented JSON.
func ToolResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}

	var obj any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return string(raw)
	}
	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(pretty)
}

// DecodeToolInput unmarshals a raw tool input into a generic map.
// Returns an empty map on malformed input rather than an error.
func DecodeToolInput(input json.RawMessage) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(input, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// truncateForLog truncates long strings for log messages
func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
