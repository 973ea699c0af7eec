package config

import "fmt"

// MCPServer describes one MCP server the CLI should be given access to.
type MCPServer struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// AddMCPServer adds a global MCP server. Returns an error if a server with
// the same name already exists.
func (c *Config) AddMCPServer(server MCPServer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if server.Name == "" {
		return fmt.Errorf("MCP server name cannot be empty")
	}
	if server.Command == "" {
		return fmt.Errorf("MCP server command cannot be empty")
	}
	for _, s := range c.MCPServers {
		if s.Name == server.Name {
			return fmt.Errorf("MCP server %q already exists", server.Name)
		}
	}

	c.MCPServers = append(c.MCPServers, server)
	return nil
}

// RemoveMCPServer removes a global MCP server by name.
// Returns true if the server was found and removed.
func (c *Config) RemoveMCPServer(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.MCPServers {
		if s.Name == name {
			c.MCPServers = append(c.MCPServers[:i], c.MCPServers[i+1:]...)
			return true
		}
	}
	return false
}

// GetMCPServers returns a copy of the global MCP server list.
func (c *Config) GetMCPServers() []MCPServer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	servers := make([]MCPServer, len(c.MCPServers))
	copy(servers, c.MCPServers)
	return servers
}

// AddProjectMCPServer adds an MCP server scoped to one project. Returns an
// error if that project already has a server with the same name.
func (c *Config) AddProjectMCPServer(projectPath string, server MCPServer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if server.Name == "" {
		return fmt.Errorf("MCP server name cannot be empty")
	}
	if server.Command == "" {
		return fmt.Errorf("MCP server command cannot be empty")
	}

	key := projectKey(projectPath)
	for _, s := range c.ProjectMCP[key] {
		if s.Name == server.Name {
			return fmt.Errorf("MCP server %q already exists for project", server.Name)
		}
	}

	c.ProjectMCP[key] = append(c.ProjectMCP[key], server)
	return nil
}

// RemoveProjectMCPServer removes a project-scoped MCP server by name.
// Returns true if the server was found and removed.
func (c *Config) RemoveProjectMCPServer(projectPath, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := projectKey(projectPath)
	servers := c.ProjectMCP[key]
	for i, s := range servers {
		if s.Name == name {
			servers = append(servers[:i], servers[i+1:]...)
			if len(servers) == 0 {
				delete(c.ProjectMCP, key)
			} else {
				c.ProjectMCP[key] = servers
			}
			return true
		}
	}
	return false
}

// GetMCPServersForProject returns the merged MCP server list for a project:
// global servers plus project servers, with project entries overriding global
// ones of the same name.
func (c *Config) GetMCPServersForProject(projectPath string) []MCPServer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	projectServers := c.ProjectMCP[projectKey(projectPath)]
	overridden := make(map[string]bool, len(projectServers))
	for _, s := range projectServers {
		overridden[s.Name] = true
	}

	merged := make([]MCPServer, 0, len(c.MCPServers)+len(projectServers))
	for _, s := range c.MCPServers {
		if !overridden[s.Name] {
			merged = append(merged, s)
		}
	}
	merged = append(merged, projectServers...)
	return merged
}
