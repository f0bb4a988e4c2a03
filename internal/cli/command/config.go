package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/cli/config"
	"github.com/yndnr/boardmesh-go/internal/cli/connection"
	"github.com/yndnr/boardmesh-go/internal/infra/confloader"
	serverconfig "github.com/yndnr/boardmesh-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "cli",
				Usage: "CLI local configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show CLI configuration",
						Action: configCLIShow,
					},
					{
						Name:   "validate",
						Usage:  "Validate CLI configuration",
						Action: configCLIValidate,
					},
				},
			},
			{
				Name:  "server",
				Usage: "Server configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show the running server configuration",
						Action: configServerShow,
					},
					{
						Name:   "client",
						Usage:  "Show the configuration served to drawing clients",
						Action: configServerClient,
					},
					{
						Name:      "test",
						Usage:     "Check a server configuration file",
						ArgsUsage: "FILE",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "with-env",
								Usage: "also apply BOARDMESH_ and legacy environment variables, as the server would",
							},
						},
						Action: configServerTest,
					},
				},
			},
		},
	}
}

func configCLIShow(c *cli.Context) error {
	fmt.Fprintf(stderr(c), "# %s\n", configPath(c))
	return printResult(c, CLIConfig(c))
}

func configCLIValidate(c *cli.Context) error {
	path := configPath(c)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	problems := cfg.Validate()
	if len(problems) == 0 {
		fmt.Fprintf(stdout(c), "Configuration is valid: %s\n", path)
		return nil
	}
	fmt.Fprintf(stdout(c), "Configuration has %d problem(s): %s\n", len(problems), path)
	for _, p := range problems {
		fmt.Fprintf(stdout(c), "  - %s\n", p)
	}
	return fmt.Errorf("validation failed")
}

func configServerShow(c *cli.Context) error {
	var result map[string]any
	if err := getJSON(c, "/api/v1/config", &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func configServerClient(c *cli.Context) error {
	var result map[string]any
	if err := getJSON(c, "/config.json", &result); err != nil {
		return err
	}
	return printResult(c, result)
}

// configServerTest loads FILE over the server defaults and verifies it.
func configServerTest(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("configuration file path required")
	}

	cfg := serverconfig.Default()
	loader := confloader.NewLoader(confloader.WithConfigFile(path))
	if c.Bool("with-env") {
		if err := loader.Load(cfg); err != nil {
			return err
		}
	} else {
		if err := loader.LoadFile(path); err != nil {
			return err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if err := serverconfig.Verify(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	fmt.Fprintf(stdout(c), "Configuration is valid: %s\n", path)
	return nil
}

func getJSON(c *cli.Context, path string, target any) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), connection.DefaultHTTPTimeout)
	defer cancel()

	resp, err := client.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return connection.ParseResponse(resp, target)
}
