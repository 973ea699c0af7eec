package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zhubert/plural-panel/paths"
)

// setupTestLogger creates a temp log file and initializes the logger with it.
func setupTestLogger(t *testing.T) (string, func()) {
	t.Helper()
	Reset()

	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test-debug.log")
	if err := Init(logPath); err != nil {
		t.Fatalf("Failed to init logger: %v", err)
	}

	return logPath, func() {
		Reset()
	}
}

func TestGet(t *testing.T) {
	_, cleanup := setupTestLogger(t)
	defer cleanup()

	log := Get()
	if log == nil {
		t.Fatal("Get() returned nil")
	}

	// Should not panic
	log.Info("test message")
	log.Debug("debug message", "key", "value")
	log.Warn("warning", "count", 42)
	log.Error("error occurred", "err", "something failed")
}

func TestGet_StructuredLogging(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	log := Get()
	log.Info("user action", "action", "sendPrompt", "panelID", "p1")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(content), "action=sendPrompt") {
		t.Errorf("log missing structured field, got: %s", content)
	}
}

func TestWithSession(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	log := WithSession("session-abc")
	log.Info("processing line")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(content), "sessionID=session-abc") {
		t.Errorf("log missing sessionID field, got: %s", content)
	}
}

func TestWithComponent(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	log := WithComponent("processor")
	log.Info("event emitted")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(content), "component=processor") {
		t.Errorf("log missing component field, got: %s", content)
	}
}

func TestSetDebug(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	log := Get()

	// Debug suppressed at default level
	log.Debug("hidden debug message")

	SetDebug(true)
	log.Debug("visible debug message")
	SetDebug(false)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(content), "hidden debug message") {
		t.Error("debug message logged at info level")
	}
	if !strings.Contains(string(content), "visible debug message") {
		t.Error("debug message not logged after SetDebug(true)")
	}
}

func TestInitIdempotent(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	// Second Init is a no-op, not an error
	if err := Init(filepath.Join(t.TempDir(), "other.log")); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	Get().Info("after second init")
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(content), "after second init") {
		t.Error("log entry missing from original file after redundant Init")
	}
}

func TestStreamLogPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", "")
	paths.Reset()
	t.Cleanup(paths.Reset)

	path, err := StreamLogPath("abc-123")
	if err != nil {
		t.Fatalf("StreamLogPath: %v", err)
	}
	if !strings.HasSuffix(path, "stream-abc-123.log") {
		t.Errorf("StreamLogPath = %q, want stream-abc-123.log suffix", path)
	}
}

func TestStreamLogWritesRawLines(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", "")
	paths.Reset()
	t.Cleanup(paths.Reset)

	sl, err := OpenStreamLog("sess-raw")
	if err != nil {
		t.Fatalf("OpenStreamLog: %v", err)
	}
	sl.Write(`{"type":"system","subtype":"init"}`)
	sl.Write(`{"type":"result","subtype":"success"}`)
	sl.Close()

	path, err := StreamLogPath("sess-raw")
	if err != nil {
		t.Fatalf("StreamLogPath: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("stream log has %d lines, want 2: %q", len(lines), content)
	}
	if lines[0] != `{"type":"system","subtype":"init"}` {
		t.Errorf("first line = %q", lines[0])
	}

	// Reopening appends rather than truncating
	sl, err = OpenStreamLog("sess-raw")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sl.Write("third")
	sl.Close()
	content, _ = os.ReadFile(path)
	if !strings.Contains(string(content), "third") || !strings.Contains(string(content), "init") {
		t.Errorf("reopen did not append: %q", content)
	}
}

func TestStreamLogNilReceiver(t *testing.T) {
	var sl *StreamLog
	// Must not panic
	sl.Write("line")
	sl.Close()
}

func TestClearLogs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", "")
	paths.Reset()
	t.Cleanup(paths.Reset)
	Reset()
	t.Cleanup(Reset)

	mainPath, err := DefaultLogPath()
	if err != nil {
		t.Fatalf("DefaultLogPath: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(mainPath), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(mainPath, []byte("main\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	for _, id := range []string{"s1", "s2"} {
		sl, err := OpenStreamLog(id)
		if err != nil {
			t.Fatalf("OpenStreamLog(%s): %v", id, err)
		}
		sl.Write("line")
		sl.Close()
	}

	count, err := ClearLogs()
	if err != nil {
		t.Fatalf("ClearLogs: %v", err)
	}
	if count != 3 {
		t.Errorf("ClearLogs removed %d files, want 3", count)
	}
	if _, err := os.Stat(mainPath); !os.IsNotExist(err) {
		t.Error("main log still present")
	}

	// Nothing left to clear
	count, err = ClearLogs()
	if err != nil {
		t.Fatalf("second ClearLogs: %v", err)
	}
	if count != 0 {
		t.Errorf("second ClearLogs removed %d files, want 0", count)
	}
}
