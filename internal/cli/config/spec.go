package config

import (
	"fmt"
	"sort"
	"strings"
)

// Output formats accepted in default_output.
var outputFormats = []string{"table", "json", "yaml"}

// CLIConfig is the configuration for boardmesh-cli.
type CLIConfig struct {
	DefaultServer string `yaml:"default_server" json:"default_server"`
	DefaultOutput string `yaml:"default_output" json:"default_output"` // table, json, yaml

	// Saved servers by name.
	Connections map[string]ConnectionConfig `yaml:"connections" json:"connections"`

	CurrentConnection string `yaml:"current_connection,omitempty" json:"current_connection,omitempty"`
}

// ConnectionConfig stores one saved server.
type ConnectionConfig struct {
	Server string `yaml:"server" json:"server"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "http://localhost:8080",
		DefaultOutput: "table",
		Connections:   make(map[string]ConnectionConfig),
	}
}

// Validate checks the configuration and returns every problem found.
func (c *CLIConfig) Validate() []string {
	var problems []string
	if strings.TrimSpace(c.DefaultServer) == "" {
		problems = append(problems, "default_server is empty")
	}
	valid := false
	for _, f := range outputFormats {
		if c.DefaultOutput == f {
			valid = true
		}
	}
	if !valid {
		problems = append(problems, fmt.Sprintf("default_output %q is not one of %s", c.DefaultOutput, strings.Join(outputFormats, ", ")))
	}

	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(c.Connections[name].Server) == "" {
			problems = append(problems, fmt.Sprintf("connection %q has no server", name))
		}
	}
	if c.CurrentConnection != "" {
		if _, ok := c.Connections[c.CurrentConnection]; !ok {
			problems = append(problems, fmt.Sprintf("current_connection %q is not saved", c.CurrentConnection))
		}
	}
	return problems
}

// Server resolves the server to talk to: an explicit address wins, then
// the current saved connection, then the default server.
func (c *CLIConfig) Server(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if conn, ok := c.Connections[c.CurrentConnection]; ok && conn.Server != "" {
		return conn.Server
	}
	return c.DefaultServer
}
