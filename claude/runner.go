package claude

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zhubert/plural-panel/logger"
)

// Runner is the boundary to the external CLI process. The processor and panel
// layers depend only on this interface; MockRunner stands in for tests.
type Runner interface {
	// Send starts one turn with the given prompt. The returned channel
	// yields raw stream-json lines from the CLI and is closed when the
	// turn completes or the context is cancelled.
	Send(ctx context.Context, prompt string) (<-chan string, error)

	// SessionStarted reports whether the CLI has accepted the session,
	// i.e. an init message has been observed.
	SessionStarted() bool

	// Interrupt aborts the in-flight turn. Events already emitted stay.
	Interrupt() error

	// Stop terminates the runner. No further Sends are accepted.
	Stop()
}

// CLIOptions configures how the CLI process is invoked.
type CLIOptions struct {
	Model           string            // --model; empty uses the CLI default
	WorkingDir      string            // process working directory
	AllowedTools    []string          // pre-approved tools, one --allowedTools flag each
	SkipPermissions bool              // --dangerously-skip-permissions
	Thinking        string            // thinking level: "off", "normal", "hard"
	MCPServers      []MCPServerConfig // external MCP servers, written to --mcp-config
	MCPConfigPath   string            // --mcp-config; set by the runner once the file exists
}

// MCPServerConfig describes one external MCP server to hand to the CLI.
type MCPServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// WriteMCPConfig writes the CLI's MCP config file for one session and returns
// its path. The file lives in the temp dir and is removed when the runner
// stops.
func WriteMCPConfig(sessionID string, servers []MCPServerConfig) (string, error) {
	mcpServers := make(map[string]any, len(servers))
	for _, server := range servers {
		entry := map[string]any{
			"command": server.Command,
			"args":    server.Args,
		}
		if len(server.Env) > 0 {
			entry["env"] = server.Env
		}
		mcpServers[server.Name] = entry
	}

	configJSON, err := json.Marshal(map[string]any{"mcpServers": mcpServers})
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(os.TempDir(), fmt.Sprintf("plural-panel-mcp-%s.json", sessionID))
	if err := os.WriteFile(configPath, configJSON, 0600); err != nil {
		return "", err
	}
	return configPath, nil
}

// thinkingDirective maps a thinking level to the prompt keyword the CLI keys
// extended reasoning off of.
func thinkingDirective(level string) string {
	switch level {
	case "normal":
		return "think"
	case "hard":
		return "think hard"
	default: // "off" or unset
		return ""
	}
}

// CLIRunner invokes the claude binary once per turn in --print stream-json
// mode. The first turn pins the session ID with --session-id; later turns
// resume it with --resume so conversation history carries across turns.
type CLIRunner struct {
	mu             sync.Mutex
	sessionID      string
	sessionStarted bool
	opts           CLIOptions
	cmd            *exec.Cmd
	stopped        bool
	log            *slog.Logger
	streamLog      *logger.StreamLog
}

// NewCLIRunner creates a runner for one session.
func NewCLIRunner(sessionID string, opts CLIOptions, log *slog.Logger) *CLIRunner {
	return &CLIRunner{
		sessionID: sessionID,
		opts:      opts,
		log:       log.With("sessionID", sessionID),
	}
}

// BuildCommandArgs builds the CLI argument list for one turn.
// Exported for testing argument construction without spawning a process.
func BuildCommandArgs(sessionID string, sessionStarted bool, opts CLIOptions, prompt string) []string {
	args := []string{
		"--print",
		"--output-format", "stream-json",
		"--verbose",
	}
	if sessionStarted {
		args = append(args, "--resume", sessionID)
	} else {
		// Pin our UUID so the session can be resumed on the next turn
		args = append(args, "--session-id", sessionID)
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.SkipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}
	if opts.MCPConfigPath != "" {
		args = append(args, "--mcp-config", opts.MCPConfigPath)
	}
	for _, tool := range opts.AllowedTools {
		args = append(args, "--allowedTools", tool)
	}
	if directive := thinkingDirective(opts.Thinking); directive != "" {
		prompt = prompt + "\n\n" + directive
	}
	args = append(args, prompt)
	return args
}

// Send implements Runner.
func (r *CLIRunner) Send(ctx context.Context, prompt string) (<-chan string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil, fmt.Errorf("runner stopped")
	}
	if r.cmd != nil {
		return nil, fmt.Errorf("turn already in progress")
	}

	if len(r.opts.MCPServers) > 0 && r.opts.MCPConfigPath == "" {
		path, err := WriteMCPConfig(r.sessionID, r.opts.MCPServers)
		if err != nil {
			return nil, fmt.Errorf("failed to write MCP config: %w", err)
		}
		r.opts.MCPConfigPath = path
	}

	if r.streamLog == nil {
		sl, err := logger.OpenStreamLog(r.sessionID)
		if err != nil {
			// The raw line log is a diagnostic aid; a turn still runs without it
			r.log.Warn("failed to open stream log", "error", err)
		} else {
			r.streamLog = sl
		}
	}
	streamLog := r.streamLog

	args := BuildCommandArgs(r.sessionID, r.sessionStarted, r.opts, prompt)
	r.log.Debug("starting process", "command", "claude "+strings.Join(args[:len(args)-1], " "))

	cmd := exec.CommandContext(ctx, "claude", args...)
	if r.opts.WorkingDir != "" {
		cmd.Dir = r.opts.WorkingDir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdout.Close()
		return nil, fmt.Errorf("failed to start claude process: %w", err)
	}
	r.cmd = cmd

	lines := make(chan string, 64)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(stdout)
		// Stream lines can be large (full file contents in tool results)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			streamLog.Write(line)

			// Mark the session as started as soon as the init message
			// arrives. Interrupting before the result message must still
			// leave the session resumable.
			if strings.Contains(line, `"type":"system"`) && strings.Contains(line, `"subtype":"init"`) {
				r.mu.Lock()
				r.sessionStarted = true
				r.mu.Unlock()
			}

			select {
			case lines <- line:
			case <-ctx.Done():
				r.log.Debug("context cancelled mid-stream")
				r.finishTurn()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			r.log.Warn("error reading process output", "error", err)
		}

		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			r.log.Warn("claude process exited with error", "error", err)
		}
		r.finishTurn()
	}()

	return lines, nil
}

func (r *CLIRunner) finishTurn() {
	r.mu.Lock()
	r.cmd = nil
	r.mu.Unlock()
}

// MarkSessionStarted marks the session as already accepted by the CLI, so the
// next turn resumes it instead of pinning a new session id. Used when loading
// a saved conversation.
func (r *CLIRunner) MarkSessionStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionStarted = true
}

// SessionStarted implements Runner.
func (r *CLIRunner) SessionStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionStarted
}

// Interrupt implements Runner. It kills the in-flight process, if any.
func (r *CLIRunner) Interrupt() error {
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	r.log.Info("interrupting claude process", "pid", cmd.Process.Pid)
	return cmd.Process.Kill()
}

// Stop implements Runner.
func (r *CLIRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	cmd := r.cmd
	streamLog := r.streamLog
	r.streamLog = nil
	mcpConfigPath := r.opts.MCPConfigPath
	r.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
	streamLog.Close()
	if mcpConfigPath != "" {
		if err := os.Remove(mcpConfigPath); err != nil && !os.IsNotExist(err) {
			r.log.Warn("failed to remove MCP config file", "path", mcpConfigPath, "error", err)
		}
	}
}

// Ensure CLIRunner implements Runner at compile time.
var _ Runner = (*CLIRunner)(nil)
