// Package config manages the panel's persistent settings, stored as YAML in
// the user's config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/zhubert/plural-panel/paths"
)

// DefaultListenAddr is where the panel server binds when unconfigured.
const DefaultListenAddr = "127.0.0.1:7177"

// ThinkingLevel controls how much extended reasoning the CLI is asked for.
type ThinkingLevel string

const (
	ThinkingOff    ThinkingLevel = "off"
	ThinkingNormal ThinkingLevel = "normal"
	ThinkingHard   ThinkingLevel = "hard"
)

// Config holds the panel configuration.
type Config struct {
	Model         string        `yaml:"model,omitempty"`          // CLI model override (empty = CLI default)
	ThinkingLevel ThinkingLevel `yaml:"thinking_level,omitempty"` // off, normal, hard
	YoloMode      bool          `yaml:"yolo_mode,omitempty"`      // skip permission prompts
	ListenAddr    string        `yaml:"listen_addr,omitempty"`    // host:port for the panel server
	Debug         bool          `yaml:"debug,omitempty"`          // debug logging

	AllowedTools        []string               `yaml:"allowed_tools,omitempty"`         // Global allowed tools
	ProjectAllowedTools map[string][]string    `yaml:"project_allowed_tools,omitempty"` // Per-project allowed tools
	MCPServers          []MCPServer            `yaml:"mcp_servers,omitempty"`           // Global MCP servers
	ProjectMCP          map[string][]MCPServer `yaml:"project_mcp,omitempty"`           // Per-project MCP servers

	mu       sync.RWMutex
	filePath string
}

// Load reads the config from disk, or creates a new one if it doesn't exist.
func Load() (*Config, error) {
	path, err := paths.ConfigFilePath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path. Used by Load and by tests.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{filePath: path}
	cfg.ensureInitialized()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Ensure slices and maps are initialized (not nil) after unmarshaling.
	// Must happen before Validate() since Validate() only reads.
	cfg.ensureInitialized()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ensureInitialized ensures all slices and maps are initialized (not nil).
// Not thread-safe; only called during single-threaded initialization.
func (c *Config) ensureInitialized() {
	if c.AllowedTools == nil {
		c.AllowedTools = []string{}
	}
	if c.ProjectAllowedTools == nil {
		c.ProjectAllowedTools = make(map[string][]string)
	}
	if c.MCPServers == nil {
		c.MCPServers = []MCPServer{}
	}
	if c.ProjectMCP == nil {
		c.ProjectMCP = make(map[string][]MCPServer)
	}
}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.ThinkingLevel {
	case "", ThinkingOff, ThinkingNormal, ThinkingHard:
	default:
		return fmt.Errorf("invalid thinking level: %q", c.ThinkingLevel)
	}

	seen := make(map[string]bool)
	for _, s := range c.MCPServers {
		if s.Name == "" {
			return fmt.Errorf("MCP server with empty name found")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate MCP server: %s", s.Name)
		}
		seen[s.Name] = true
		if s.Command == "" {
			return fmt.Errorf("MCP server %s has empty command", s.Name)
		}
	}

	for project, servers := range c.ProjectMCP {
		names := make(map[string]bool)
		for _, s := range servers {
			if s.Name == "" || s.Command == "" {
				return fmt.Errorf("project %s has malformed MCP server entry", project)
			}
			if names[s.Name] {
				return fmt.Errorf("project %s has duplicate MCP server: %s", project, s.Name)
			}
			names[s.Name] = true
		}
	}

	return nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filePath, data, 0644)
}

// SetFilePath sets the config file path (for testing).
func (c *Config) SetFilePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filePath = path
}

// GetModel returns the configured model override, or empty for CLI default.
func (c *Config) GetModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Model
}

// SetModel sets the model override.
func (c *Config) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Model = model
}

// GetThinkingLevel returns the thinking level, defaulting to normal.
func (c *Config) GetThinkingLevel() ThinkingLevel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ThinkingLevel == "" {
		return ThinkingNormal
	}
	return c.ThinkingLevel
}

// SetThinkingLevel sets the thinking level.
func (c *Config) SetThinkingLevel(level ThinkingLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ThinkingLevel = level
}

// GetYoloMode returns whether permission prompts are skipped.
func (c *Config) GetYoloMode() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.YoloMode
}

// SetYoloMode sets whether permission prompts are skipped.
func (c *Config) SetYoloMode(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.YoloMode = enabled
}

// GetListenAddr returns the server bind address, defaulting to localhost.
func (c *Config) GetListenAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return c.ListenAddr
}

// SetListenAddr sets the server bind address.
func (c *Config) SetListenAddr(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ListenAddr = addr
}

// GetDebug returns whether debug logging is enabled.
func (c *Config) GetDebug() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Debug
}

// SetDebug sets whether debug logging is enabled.
func (c *Config) SetDebug(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Debug = enabled
}

// GetAllowedTools returns a copy of the global allowed tools list.
func (c *Config) GetAllowedTools() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tools := make([]string, len(c.AllowedTools))
	copy(tools, c.AllowedTools)
	return tools
}

// SetAllowedTools replaces the global allowed tools list.
func (c *Config) SetAllowedTools(tools []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AllowedTools = append([]string{}, tools...)
}

// GetAllowedToolsForProject returns the merged allowed tools for a project:
// the global list plus any project-specific additions, deduplicated.
func (c *Config) GetAllowedToolsForProject(projectPath string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	merged := make([]string, 0, len(c.AllowedTools))
	for _, t := range c.AllowedTools {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	for _, t := range c.ProjectAllowedTools[projectKey(projectPath)] {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	return merged
}

// SetProjectAllowedTools replaces the allowed tools for one project.
// An empty list removes the project entry.
func (c *Config) SetProjectAllowedTools(projectPath string, tools []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := projectKey(projectPath)
	if len(tools) == 0 {
		delete(c.ProjectAllowedTools, key)
		return
	}
	c.ProjectAllowedTools[key] = append([]string{}, tools...)
}

// projectKey normalizes a project path for use as a map key.
func projectKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
