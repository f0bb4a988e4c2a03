package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/cli/config"
	"github.com/yndnr/boardmesh-go/internal/cli/connection"
)

// ConnectCommand returns the connect command.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Check a BoardMesh server and make it current",
		ArgsUsage: "[SERVER]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Save the server under this name",
			},
		},
		Action: connectAction,
	}
}

func connectAction(c *cli.Context) error {
	server := c.Args().First()
	if server == "" {
		server = ServerAddress(c)
	}

	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}

	conn := &connection.Connection{Name: c.String("name"), Server: server}
	if err := mgr.Connect(context.Background(), conn); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}

	if conn.Name != "" {
		if err := mgr.Add(*conn); err != nil {
			return err
		}
		cfg := CLIConfig(c)
		cfg.Connections[conn.Name] = config.ConnectionConfig{Server: server}
		cfg.CurrentConnection = conn.Name
		if err := config.Save(cfg, configPath(c)); err != nil {
			return fmt.Errorf("save connection: %w", err)
		}
		fmt.Fprintf(stdout(c), "Connected to %s (saved as %q)\n", server, conn.Name)
		return nil
	}

	fmt.Fprintf(stdout(c), "Connected to %s\n", server)
	return nil
}

// DisconnectCommand returns the disconnect command.
func DisconnectCommand() *cli.Command {
	return &cli.Command{
		Name:   "disconnect",
		Usage:  "Forget the current saved connection",
		Action: disconnectAction,
	}
}

func disconnectAction(c *cli.Context) error {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}

	cfg := CLIConfig(c)
	if !mgr.IsConnected() && cfg.CurrentConnection == "" {
		fmt.Fprintln(stdout(c), "Not connected to any server")
		return nil
	}

	mgr.Disconnect()
	cfg.CurrentConnection = ""
	if err := config.Save(cfg, configPath(c)); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintln(stdout(c), "Disconnected")
	return nil
}

// ConnectionsCommand returns the saved connection commands.
func ConnectionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "connections",
		Aliases: []string{"conn"},
		Usage:   "Manage saved servers",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved servers",
				Action: connectionsList,
			},
			{
				Name:      "use",
				Usage:     "Switch to a saved server",
				ArgsUsage: "NAME",
				Action:    connectionsUse,
			},
			{
				Name:      "remove",
				Usage:     "Delete a saved server",
				ArgsUsage: "NAME",
				Action:    connectionsRemove,
			},
		},
	}
}

type connectionRow struct {
	Name    string `json:"name"`
	Server  string `json:"server"`
	Current bool   `json:"current"`
}

func connectionsList(c *cli.Context) error {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}
	current := ""
	if cur := mgr.Current(); cur != nil {
		current = cur.Name
	}
	rows := []connectionRow{}
	for _, conn := range mgr.Saved() {
		rows = append(rows, connectionRow{Name: conn.Name, Server: conn.Server, Current: conn.Name == current})
	}
	return printResult(c, rows)
}

func connectionsUse(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("connection name required")
	}
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}
	if err := mgr.Use(name); err != nil {
		return err
	}
	cfg := CLIConfig(c)
	cfg.CurrentConnection = name
	if err := config.Save(cfg, configPath(c)); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(stdout(c), "Using %s (%s)\n", name, mgr.Current().Server)
	return nil
}

func connectionsRemove(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("connection name required")
	}
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}
	if !mgr.Remove(name) {
		return fmt.Errorf("no saved connection %q", name)
	}
	cfg := CLIConfig(c)
	delete(cfg.Connections, name)
	if cfg.CurrentConnection == name {
		cfg.CurrentConnection = ""
	}
	if err := config.Save(cfg, configPath(c)); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(stdout(c), "Removed %s\n", name)
	return nil
}
