package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/cli/connection"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server health commands",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check server health",
				Action: systemHealth,
			},
			{
				Name:   "ready",
				Usage:  "Check whether the server accepts connections",
				Action: systemReady,
			},
			{
				Name:   "config",
				Usage:  "Show the server and drawing-client configuration",
				Action: systemConfig,
			},
		},
	}
}

type probeResult struct {
	Status  string `json:"status"`
	Sockets int    `json:"sockets,omitempty"`
	Time    string `json:"time"`
	Target  string `json:"target"`
}

func probe(c *cli.Context, path string) (*probeResult, error) {
	client, err := EnsureConnected(c)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var result probeResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return nil, err
	}
	result.Target = client.BaseURL()
	return &result, nil
}

func systemHealth(c *cli.Context) error {
	result, err := probe(c, "/health")
	if err != nil {
		PrintError(c, "health check failed: %v", err)
		return fmt.Errorf("server unhealthy")
	}
	if ParseGlobalFlags(c).Output != "" {
		return printResult(c, result)
	}
	if result.Status != "healthy" {
		fmt.Fprintf(stdout(c), "Server is unhealthy: %s\n", result.Status)
		return nil
	}
	fmt.Fprintf(stdout(c), "Server is healthy\n  Target: %s\n", result.Target)
	return nil
}

func systemReady(c *cli.Context) error {
	result, err := probe(c, "/ready")
	if err != nil {
		return fmt.Errorf("server not ready: %w", err)
	}
	if ParseGlobalFlags(c).Output != "" {
		return printResult(c, result)
	}
	fmt.Fprintf(stdout(c), "Server is ready\n  Target:  %s\n  Sockets: %d\n", result.Target, result.Sockets)
	return nil
}

func systemConfig(c *cli.Context) error {
	var result struct {
		Server map[string]any `json:"server" yaml:"server"`
		Client map[string]any `json:"client" yaml:"client"`
	}
	if err := getJSON(c, "/api/v1/config", &result.Server); err != nil {
		return err
	}
	if err := getJSON(c, "/config.json", &result.Client); err != nil {
		return err
	}
	return printResult(c, result)
}
