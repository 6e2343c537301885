// Package install registers the aitracker MCP server in AI agent configs.
package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
)

// ServerName is the key the MCP server is registered under.
const ServerName = "aitracker"

// Agent describes where an agent keeps its MCP server list.
type Agent struct {
	ID   string
	Name string

	// ConfigPath returns the config file location relative to home.
	ConfigPath func(home string) string

	// Section is the top-level key holding MCP servers.
	Section string

	// Entry builds the server entry for the given command line.
	Entry func(command []string) map[string]any

	// Defaults are top-level keys added when missing.
	Defaults map[string]any
}

var agents = map[string]Agent{
	"claude-code": {
		ID:   "claude-code",
		Name: "Claude Code",
		ConfigPath: func(home string) string {
			return filepath.Join(home, ".claude.json")
		},
		Section: "mcpServers",
		Entry: func(command []string) map[string]any {
			return map[string]any{
				"command": command[0],
				"args":    command[1:],
			}
		},
	},
	"opencode": {
		ID:   "opencode",
		Name: "OpenCode",
		ConfigPath: func(home string) string {
			jsonPath := filepath.Join(home, ".config", "opencode", "opencode.json")
			jsoncPath := filepath.Join(home, ".config", "opencode", "opencode.jsonc")
			if _, err := os.Stat(jsonPath); err == nil {
				return jsonPath
			}
			if _, err := os.Stat(jsoncPath); err == nil {
				return jsoncPath
			}
			return jsonPath
		},
		Section: "mcp",
		Entry: func(command []string) map[string]any {
			return map[string]any{
				"type":    "local",
				"command": command,
				"enabled": true,
			}
		},
		Defaults: map[string]any{"$schema": "https://opencode.ai/config.json"},
	},
}

// Agents returns the supported agent IDs in sorted order.
func Agents() []string {
	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the agent with the given ID.
func Lookup(id string) (Agent, error) {
	a, ok := agents[id]
	if !ok {
		return Agent{}, fmt.Errorf("unknown agent %q (supported: %v)", id, Agents())
	}
	return a, nil
}

// Install adds the server entry for command to the agent's config under home
// and returns the path written. Other keys in the file are preserved.
func Install(a Agent, home string, command []string) (string, error) {
	if len(command) == 0 {
		return "", errors.New("command is required")
	}
	path := a.ConfigPath(home)

	config, err := readConfig(path)
	if err != nil {
		return "", err
	}
	for k, v := range a.Defaults {
		if _, ok := config[k]; !ok {
			config[k] = v
		}
	}

	servers, ok := config[a.Section].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	servers[ServerName] = a.Entry(command)
	config[a.Section] = servers

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := writeConfig(path, config); err != nil {
		return "", err
	}

	log.Debug("Registered MCP server", "agent", a.ID, "config", path)
	return path, nil
}

// Uninstall removes the server entry from the agent's config. It reports
// false when there was nothing to remove.
func Uninstall(a Agent, home string) (bool, error) {
	path := a.ConfigPath(home)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	config, err := readConfig(path)
	if err != nil {
		return false, err
	}

	servers, ok := config[a.Section].(map[string]any)
	if !ok {
		return false, nil
	}
	if _, ok := servers[ServerName]; !ok {
		return false, nil
	}
	delete(servers, ServerName)
	config[a.Section] = servers

	if err := writeConfig(path, config); err != nil {
		return false, err
	}
	return true, nil
}

func readConfig(path string) (map[string]any, error) {
	config := make(map[string]any)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse existing config: %w", err)
	}
	return config, nil
}

func writeConfig(path string, config map[string]any) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
