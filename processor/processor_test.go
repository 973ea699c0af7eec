package processor

import (
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// capturePoster records every posted message in order.
type capturePoster struct {
	msgs []ReplayMessage
}

func (c *capturePoster) PostMessage(kind Kind, data any) {
	c.msgs = append(c.msgs, ReplayMessage{Type: kind, Data: data})
}

func (c *capturePoster) kinds() []Kind {
	out := make([]Kind, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.Type
	}
	return out
}

// fakeFS serves file snapshots from a map.
type fakeFS map[string]string

func (f fakeFS) ReadFile(path string) (string, error) {
	if content, ok := f[path]; ok {
		return content, nil
	}
	return "", os.ErrNotExist
}

func newTestProcessor(t *testing.T, cb Callbacks) (*Processor, *capturePoster) {
	t.Helper()
	poster := &capturePoster{}
	p := New(poster, cb, testLogger())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	p.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	})
	return p, poster
}

func assertKinds(t *testing.T, got []Kind, want ...Kind) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("event kinds = %v, want %v", got, want)
	}
}

// Mirrors the first acceptance scenario: one assistant turn with usage and a
// Read tool call, followed by its quiet result.
func TestAssistantTurnWithReadTool(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_1","name":"Read","input":{"file_path":"/tmp/a.go"}}],"usage":{"input_tokens":1000,"output_tokens":500}}}`)
	p.ProcessLine(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_1","is_error":false,"content":"file body"}]}}`)

	assertKinds(t, poster.kinds(), KindUpdateTokens, KindToolUse, KindToolResult)

	tokens := poster.msgs[0].Data.(TokenUpdateData)
	if tokens.TotalTokensInput != 1000 || tokens.TotalTokensOutput != 500 {
		t.Errorf("token update = %+v, want 1000/500", tokens)
	}

	use := poster.msgs[1].Data.(ToolUseData)
	if use.ToolName != "Read" || use.InputSummary != "a.go" {
		t.Errorf("tool use = %+v", use)
	}

	result := poster.msgs[2].Data.(ToolResultData)
	if result.ToolName != "Read" {
		t.Errorf("result tool name = %q, want Read", result.ToolName)
	}
	if !result.Hidden {
		t.Error("quiet tool result with isError=false should be hidden")
	}
	if result.Content != "file body" {
		t.Errorf("result content = %q", result.Content)
	}
	if result.PairedByPosition {
		t.Error("id-matched result should not be flagged pairedByPosition")
	}

	totals := p.Totals()
	if totals.TokensInput != 1000 || totals.TokensOutput != 500 {
		t.Errorf("accumulator = %+v, want 1000/500", totals)
	}
}

// Mirrors the second acceptance scenario: a successful result refreshes the
// session id, bumps counters, and fires the completion callback.
func TestResultSuccess(t *testing.T) {
	var gotSession string
	var gotCost float64
	completions := 0
	p, poster := newTestProcessor(t, Callbacks{
		OnComplete: func(sessionID string, costUSD float64) {
			gotSession = sessionID
			gotCost = costUSD
			completions++
		},
	})

	p.ProcessLine(`{"type":"result","subtype":"success","session_id":"abc","total_cost_usd":0.02,"duration_ms":4200,"num_turns":2,"result":"done"}`)

	assertKinds(t, poster.kinds(), KindSessionInfo, KindUpdateTotals)

	info := poster.msgs[0].Data.(SessionInfoData)
	if info.SessionID != "abc" {
		t.Errorf("sessionInfo = %+v", info)
	}

	totals := poster.msgs[1].Data.(TotalsData)
	if totals.TotalCostUSD != 0.02 || totals.RequestCount != 1 {
		t.Errorf("updateTotals = %+v, want cost 0.02 requestCount 1", totals)
	}
	if totals.DurationMs != 4200 || totals.NumTurns != 2 {
		t.Errorf("updateTotals turn stats = %+v", totals)
	}

	if completions != 1 || gotSession != "abc" || gotCost != 0.02 {
		t.Errorf("completion callback = (%d, %q, %v), want (1, abc, 0.02)", completions, gotSession, gotCost)
	}
}

func TestInitEmitsSessionInfoAndCallback(t *testing.T) {
	var ids []string
	p, poster := newTestProcessor(t, Callbacks{
		OnSessionID: func(id string) { ids = append(ids, id) },
	})

	p.ProcessLine(`{"type":"system","subtype":"init","session_id":"sess-9","model":"claude-sonnet-4-5","tools":["Read","Edit"],"mcp_servers":[{"name":"linear","status":"connected"}]}`)

	assertKinds(t, poster.kinds(), KindSessionInfo)
	info := poster.msgs[0].Data.(SessionInfoData)
	if info.SessionID != "sess-9" || info.Model != "claude-sonnet-4-5" {
		t.Errorf("sessionInfo = %+v", info)
	}
	if len(info.Tools) != 2 || len(info.MCPServers) != 1 || info.MCPServers[0] != "linear" {
		t.Errorf("sessionInfo lists = %+v", info)
	}
	if len(ids) != 1 || ids[0] != "sess-9" {
		t.Errorf("session id callback = %v, want [sess-9]", ids)
	}
	if p.SessionID() != "sess-9" {
		t.Errorf("SessionID = %q", p.SessionID())
	}
}

func TestCompactingStatus(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"system","subtype":"status","status":"compacting"}`)
	p.ProcessLine(`{"type":"system","subtype":"status","status":""}`)

	assertKinds(t, poster.kinds(), KindCompacting, KindCompacting)
	if !poster.msgs[0].Data.(CompactingData).IsCompacting {
		t.Error("first status should be compacting")
	}
	if poster.msgs[1].Data.(CompactingData).IsCompacting {
		t.Error("second status should not be compacting")
	}
}

func TestCompactBoundaryZeroesTokensNotCost(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"assistant","message":{"content":[],"usage":{"input_tokens":90000,"output_tokens":2000}}}`)
	p.ProcessLine(`{"type":"result","subtype":"success","total_cost_usd":0.31,"result":"ok"}`)
	p.ProcessLine(`{"type":"system","subtype":"compact_boundary","compact_metadata":{"trigger":"auto","pre_tokens":92000}}`)

	totals := p.Totals()
	if totals.TokensInput != 0 || totals.TokensOutput != 0 {
		t.Errorf("tokens after boundary = %d/%d, want 0/0", totals.TokensInput, totals.TokensOutput)
	}
	if totals.CostUSD != 0.31 {
		t.Errorf("cost after boundary = %v, want 0.31 (unaffected)", totals.CostUSD)
	}

	last := poster.msgs[len(poster.msgs)-1]
	if last.Type != KindCompactBoundary {
		t.Fatalf("last event = %s, want compactBoundary", last.Type)
	}
	boundary := last.Data.(CompactBoundaryData)
	if boundary.Trigger != "auto" || boundary.PreCompactionTokens != 92000 {
		t.Errorf("boundary = %+v", boundary)
	}
}

func TestTokenMonotonicity(t *testing.T) {
	p, _ := newTestProcessor(t, Callbacks{})

	var prev Totals
	lines := []string{
		`{"type":"assistant","message":{"content":[],"usage":{"input_tokens":100,"output_tokens":50}}}`,
		`{"type":"user","message":{"content":[]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"hi"}],"usage":{"input_tokens":200,"output_tokens":80}}}`,
		`{"type":"result","subtype":"success","total_cost_usd":0.01,"result":"ok"}`,
		`{"type":"assistant","message":{"content":[],"usage":{"input_tokens":300,"output_tokens":10}}}`,
	}
	for _, line := range lines {
		p.ProcessLine(line)
		cur := p.Totals()
		if cur.TokensInput < prev.TokensInput || cur.TokensOutput < prev.TokensOutput || cur.CostUSD < prev.CostUSD {
			t.Fatalf("totals decreased: %+v -> %+v", prev, cur)
		}
		prev = cur
	}
}

func TestEmptyContentSuppressed(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"text","text":"   \n"},{"type":"thinking","thinking":""},{"type":"text","text":"real output"}]}}`)

	assertKinds(t, poster.kinds(), KindOutput)
	if got := poster.msgs[0].Data.(TextData).Text; got != "real output" {
		t.Errorf("output = %q", got)
	}
}

func TestEditDiffOffsets(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})
	p.SetFileReader(fakeFS{"/tmp/f.txt": "line1\nline2\nfoo\nline4"})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"/tmp/f.txt","old_string":"foo","new_string":"bar"}}]}}`)

	use := poster.msgs[0].Data.(ToolUseData)
	if use.StartLine != 3 {
		t.Errorf("StartLine = %d, want 3", use.StartLine)
	}
	if use.FileContentBefore != "line1\nline2\nfoo\nline4" {
		t.Errorf("before snapshot = %q", use.FileContentBefore)
	}
}

func TestEditDiffOffsetNeedleAbsent(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})
	p.SetFileReader(fakeFS{"/tmp/f.txt": "line1\nline2"})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"/tmp/f.txt","old_string":"missing","new_string":"x"}}]}}`)

	use := poster.msgs[0].Data.(ToolUseData)
	if use.StartLine != 1 {
		t.Errorf("StartLine = %d, want 1 when needle absent", use.StartLine)
	}
}

func TestMultiEditOffsets(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})
	p.SetFileReader(fakeFS{"/tmp/f.txt": "alpha\nbeta\ngamma\ndelta"})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"MultiEdit","input":{"file_path":"/tmp/f.txt","edits":[{"old_string":"gamma","new_string":"g"},{"old_string":42,"new_string":"x"},{"old_string":"beta","new_string":"b"}]}}]}}`)

	use := poster.msgs[0].Data.(ToolUseData)
	// Non-string old_string is skipped; the rest computed independently
	if !reflect.DeepEqual(use.StartLines, []int{3, 2}) {
		t.Errorf("StartLines = %v, want [3 2]", use.StartLines)
	}
}

func TestSnapshotReadFailureDegrades(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})
	p.SetFileReader(fakeFS{}) // nothing readable

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"/gone.txt","old_string":"x","new_string":"y"}}]}}`)

	use := poster.msgs[0].Data.(ToolUseData)
	if use.FileContentBefore != "" {
		t.Errorf("before snapshot = %q, want empty on read failure", use.FileContentBefore)
	}
	// Absent needle in empty snapshot still yields line 1
	if use.StartLine != 1 {
		t.Errorf("StartLine = %d, want 1", use.StartLine)
	}
}

func TestEditResultCapturesAfterSnapshot(t *testing.T) {
	fs := fakeFS{"/tmp/f.txt": "before content"}
	var toolResults []ToolResultData
	p, poster := newTestProcessor(t, Callbacks{
		OnToolResult: func(toolName string, result ToolResultData) {
			toolResults = append(toolResults, result)
		},
	})
	p.SetFileReader(fs)

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"/tmp/f.txt","old_string":"before","new_string":"after"}}]}}`)
	fs["/tmp/f.txt"] = "after content"
	p.ProcessLine(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","is_error":false,"content":"edit applied"}]}}`)

	result := poster.msgs[len(poster.msgs)-1].Data.(ToolResultData)
	if result.FileContentBefore != "before content" {
		t.Errorf("before = %q", result.FileContentBefore)
	}
	if result.FileContentAfter != "after content" {
		t.Errorf("after = %q", result.FileContentAfter)
	}
	if result.Hidden {
		t.Error("edit results are not quiet, must not be hidden")
	}
	if len(toolResults) != 1 {
		t.Fatalf("OnToolResult calls = %d, want 1", len(toolResults))
	}
}

func TestErrorEditResultSkipsAfterSnapshot(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})
	p.SetFileReader(fakeFS{"/tmp/f.txt": "content"})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"/tmp/f.txt","old_string":"x","new_string":"y"}}]}}`)
	p.ProcessLine(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","is_error":true,"content":"old_string not found"}]}}`)

	result := poster.msgs[len(poster.msgs)-1].Data.(ToolResultData)
	if result.FileContentAfter != "" {
		t.Errorf("after snapshot = %q, want empty for errored edit", result.FileContentAfter)
	}
	if result.IsError != true {
		t.Error("IsError not carried through")
	}
}

func TestHiddenFlagRespectsErrors(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"/tmp/a"}}]}}`)
	p.ProcessLine(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","is_error":true,"content":"no such file"}]}}`)

	result := poster.msgs[len(poster.msgs)-1].Data.(ToolResultData)
	if result.Hidden {
		t.Error("errored quiet-tool result must not be hidden")
	}
}

func TestInterleavedToolCallsPairById(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"tA","name":"Grep","input":{"pattern":"foo"}},{"type":"tool_use","id":"tB","name":"Bash","input":{"command":"go vet"}}]}}`)
	// Results arrive out of order
	p.ProcessLine(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"tB","is_error":false,"content":"vet ok"}]}}`)
	p.ProcessLine(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"tA","is_error":false,"content":"3 matches"}]}}`)

	first := poster.msgs[2].Data.(ToolResultData)
	second := poster.msgs[3].Data.(ToolResultData)
	if first.ToolName != "Bash" || first.PairedByPosition {
		t.Errorf("first result = %+v, want Bash paired by id", first)
	}
	if second.ToolName != "Grep" || second.PairedByPosition {
		t.Errorf("second result = %+v, want Grep paired by id", second)
	}
}

func TestPositionalFallbackIsFlagged(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"tA","name":"Bash","input":{"command":"ls"}}]}}`)
	// Result with an id the correlator has never seen — tail lookup applies
	p.ProcessLine(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"tZ","is_error":false,"content":"out"}]}}`)

	result := poster.msgs[len(poster.msgs)-1].Data.(ToolResultData)
	if result.ToolName != "Bash" {
		t.Errorf("fallback result tool = %q, want Bash", result.ToolName)
	}
	if !result.PairedByPosition {
		t.Error("tail-lookup pairing must set pairedByPosition")
	}
}

func TestOrphanedResultStillEmitted(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"tX","is_error":false,"content":"stray"}]}}`)

	assertKinds(t, poster.kinds(), KindToolResult)
	result := poster.msgs[0].Data.(ToolResultData)
	if result.ToolName != "" {
		t.Errorf("orphan tool name = %q, want empty", result.ToolName)
	}
	if result.Hidden {
		t.Error("orphan result must not be hidden")
	}
	if result.Content != "stray" {
		t.Errorf("orphan content = %q", result.Content)
	}
}

func TestObjectResultContentPrettyPrinted(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"true"}}]}}`)
	p.ProcessLine(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","is_error":false,"content":{"exitCode":0,"stdout":"done"}}]}}`)

	result := poster.msgs[len(poster.msgs)-1].Data.(ToolResultData)
	if !strings.Contains(result.Content, "\"exitCode\": 0") {
		t.Errorf("object content not pretty-printed: %q", result.Content)
	}
}

func TestTodoWriteEmitsSideChannel(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"TodoWrite","input":{"todos":[{"content":"Fix tests","status":"in_progress","activeForm":"Fixing tests"}]}}]}}`)

	assertKinds(t, poster.kinds(), KindTodosUpdate, KindToolUse)
	todos := poster.msgs[0].Data.(TodosUpdateData)
	if len(todos.Todos) != 1 || todos.Todos[0].Content != "Fix tests" {
		t.Errorf("todos = %+v", todos)
	}
}

func TestAuthFailureIsTransient(t *testing.T) {
	completions := 0
	p, poster := newTestProcessor(t, Callbacks{
		OnComplete: func(string, float64) { completions++ },
	})

	p.ProcessLine(`{"type":"result","subtype":"success","result":"Invalid API key. Please run /login","total_cost_usd":0}`)

	assertKinds(t, poster.kinds(), KindLoginRequired)
	if p.Log().Len() != 0 {
		t.Errorf("log has %d events, login prompt must not be persisted", p.Log().Len())
	}
	if completions != 0 {
		t.Error("auth failure must not fire the completion callback")
	}
	if p.Totals().RequestCount != 0 {
		t.Error("auth failure must not count as a completed request")
	}
}

func TestGarbageLinesIgnored(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	p.ProcessLine("")
	p.ProcessLine("starting up...")
	p.ProcessLine(`{"broken`)
	p.ProcessLine(`{"type":"mystery","payload":1}`)

	if len(poster.msgs) != 0 {
		t.Errorf("garbage produced events: %v", poster.kinds())
	}
	if p.Log().Len() != 0 {
		t.Errorf("garbage appended to log: %d events", p.Log().Len())
	}
}

func TestTimestampsMonotonic(t *testing.T) {
	poster := &capturePoster{}
	p := New(poster, Callbacks{}, testLogger())

	// A clock that jumps backwards mid-session
	times := []time.Time{
		time.Date(2025, 6, 1, 12, 0, 2, 0, time.UTC),
		time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC),
		time.Date(2025, 6, 1, 12, 0, 3, 0, time.UTC),
	}
	i := 0
	p.SetClock(func() time.Time {
		t := times[i%len(times)]
		i++
		return t
	})

	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"text","text":"a"}]}}`)
	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"text","text":"b"}]}}`)
	p.ProcessLine(`{"type":"assistant","message":{"content":[{"type":"text","text":"c"}]}}`)

	events := p.Log().Events()
	for j := 1; j < len(events); j++ {
		if events[j].Timestamp.Before(events[j-1].Timestamp) {
			t.Fatalf("timestamp decreased at %d: %v -> %v", j, events[j-1].Timestamp, events[j].Timestamp)
		}
	}
}

func TestReplayFidelity(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})
	p.SetFileReader(fakeFS{"/tmp/f.txt": "one\ntwo"})

	lines := []string{
		`{"type":"system","subtype":"init","session_id":"s1","model":"m","tools":["Read"]}`,
		`{"type":"assistant","message":{"content":[{"type":"thinking","thinking":"plan"},{"type":"text","text":"doing it"}],"usage":{"input_tokens":10,"output_tokens":5}}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"/tmp/f.txt","old_string":"two","new_string":"2"}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","is_error":false,"content":"ok"}]}}`,
		`{"type":"result","subtype":"success","session_id":"s1","total_cost_usd":0.01,"result":"done"}`,
	}
	p.RecordUserInput("edit my file")
	for _, line := range lines {
		p.ProcessLine(line)
	}

	live := poster.msgs
	replay := p.Log().ReplayAll()

	if !reflect.DeepEqual(replay, live) {
		t.Fatalf("replay diverges from live stream:\nlive:   %+v\nreplay: %+v", live, replay)
	}
}

func TestTruncateAfterDropsSuffix(t *testing.T) {
	p, _ := newTestProcessor(t, Callbacks{})

	for i := 0; i < 5; i++ {
		p.RecordUserInput("msg")
	}
	p.TruncateAfter(1)

	if p.Log().Len() != 2 {
		t.Errorf("log len = %d, want 2", p.Log().Len())
	}

	p.RecordUserInput("after truncate")
	if p.Log().Len() != 3 {
		t.Errorf("log len = %d, want 3", p.Log().Len())
	}
}

func TestResetClearsEverything(t *testing.T) {
	p, _ := newTestProcessor(t, Callbacks{})

	p.ProcessLine(`{"type":"system","subtype":"init","session_id":"s1"}`)
	p.ProcessLine(`{"type":"assistant","message":{"content":[],"usage":{"input_tokens":10,"output_tokens":5}}}`)

	p.Reset()

	if p.Log().Len() != 0 {
		t.Error("log not cleared")
	}
	if p.Totals() != (Totals{}) {
		t.Errorf("totals not cleared: %+v", p.Totals())
	}
	if p.SessionID() != "" {
		t.Errorf("session id not cleared: %q", p.SessionID())
	}
}

func TestLoadConversationReplaysVerbatim(t *testing.T) {
	p, poster := newTestProcessor(t, Callbacks{})

	saved := []Event{
		{Timestamp: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), MessageType: KindUserInput, Data: map[string]any{"text": "hello"}},
		{Timestamp: time.Date(2025, 5, 1, 9, 0, 1, 0, time.UTC), MessageType: KindOutput, Data: map[string]any{"text": "hi"}},
	}
	p.LoadConversation("sess-7", 0.15, 1200, 340, saved)

	if len(poster.msgs) != 2 {
		t.Fatalf("posted %d messages, want 2", len(poster.msgs))
	}
	if poster.msgs[0].Type != KindUserInput || poster.msgs[1].Type != KindOutput {
		t.Errorf("replayed kinds = %v", poster.kinds())
	}
	if p.SessionID() != "sess-7" {
		t.Errorf("SessionID = %q, want sess-7", p.SessionID())
	}
	totals := p.Totals()
	if totals.CostUSD != 0.15 || totals.TokensInput != 1200 || totals.TokensOutput != 340 {
		t.Errorf("totals after load = %+v", totals)
	}

	// Loaded events land in the log for later replayAll
	if p.Log().Len() != 2 {
		t.Errorf("log len = %d, want 2", p.Log().Len())
	}

	// New events stamp after the loaded history
	p.RecordUserInput("continuing")
	events := p.Log().Events()
	if events[2].Timestamp.Before(events[1].Timestamp) {
		t.Error("post-load timestamp precedes loaded history")
	}
}
