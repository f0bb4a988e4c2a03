package command

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/cli/config"
	"github.com/yndnr/boardmesh-go/internal/cli/connection"
	"github.com/yndnr/boardmesh-go/internal/cli/output"
	"github.com/yndnr/boardmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

const (
	metaConfig     = "cliConfig"
	metaConfigPath = "cliConfigPath"
	metaConnMgr    = "connMgr"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "boardmesh-cli",
		Usage:   "BoardMesh whiteboard client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ConnectCommand(),
			DisconnectCommand(),
			ConnectionsCommand(),
			BoardsCommand(),
			ExportCommand(),
			WatchCommand(),
			DrawCommand(),
			DiscoverCommand(),
			SystemCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: setup,
	}
}

// setup loads the CLI config and the saved connections.
func setup(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	mgr := connection.NewManager()
	for name, conn := range cfg.Connections {
		if err := mgr.Add(connection.Connection{Name: name, Server: conn.Server}); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if cfg.CurrentConnection != "" {
		if err := mgr.Use(cfg.CurrentConnection); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaConfigPath] = path
	c.App.Metadata[metaConnMgr] = mgr
	return nil
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "BoardMesh server address (e.g., localhost:8080)",
			EnvVars: []string{"BOARDMESH_SERVER"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			EnvVars: []string{"BOARDMESH_OUTPUT"},
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI config file",
			Value: config.DefaultConfigPath(),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log connection events to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server  string
	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:  c.String("server"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// CLIConfig returns the loaded CLI config.
func CLIConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

func configPath(c *cli.Context) string {
	if p, ok := c.App.Metadata[metaConfigPath].(string); ok {
		return p
	}
	return config.DefaultConfigPath()
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata[metaConnMgr].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// ServerAddress resolves the target server: the --server flag, then the
// current saved connection, then the configured default.
func ServerAddress(c *cli.Context) string {
	if s := ParseGlobalFlags(c).Server; s != "" {
		return s
	}
	if mgr := GetConnectionManager(c); mgr != nil {
		if cur := mgr.Current(); cur != nil {
			return cur.Server
		}
	}
	return CLIConfig(c).Server("")
}

// EnsureConnected returns an HTTP client for the resolved server.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	server := ServerAddress(c)
	if server == "" {
		return nil, fmt.Errorf("no server configured; use --server or connect")
	}
	return connection.NewHTTPClient(server), nil
}

func stdout(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func stderr(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// printResult writes data in the selected output format.
func printResult(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	name := flags.Output
	if name == "" {
		name = CLIConfig(c).DefaultOutput
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, flags.Wide).Format(stdout(c), data)
}

// cliLogger logs to stderr, at debug level with --verbose.
func cliLogger(c *cli.Context) *slog.Logger {
	level := "warn"
	if ParseGlobalFlags(c).Verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Format: "text", Output: stderr(c)})
}

// PrintError prints an error message to stderr.
func PrintError(c *cli.Context, format string, args ...any) {
	fmt.Fprintf(stderr(c), "error: "+format+"\n", args...)
}
