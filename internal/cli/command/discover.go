package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/cli/output"
	"github.com/yndnr/boardmesh-go/internal/infra/discovery"
)

// DiscoverCommand returns the discover command.
func DiscoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Find BoardMesh servers on the local network",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "How long to listen for answers",
				Value:   discovery.DefaultTimeout,
			},
			&cli.StringFlag{
				Name:  "service",
				Usage: "mDNS service name",
				Value: discovery.DefaultService,
			},
		},
		Action: discoverAction,
	}
}

type discoveredRow struct {
	Instance string   `json:"instance"`
	URL      string   `json:"url"`
	Host     string   `json:"host" table:"wide"`
	Info     []string `json:"info" table:"wide"`
}

func discoverAction(c *cli.Context) error {
	spin := output.NewSpinner(stderr(c), "Browsing "+c.String("service"))
	spin.Start()

	servers, err := discovery.Browse(context.Background(), discovery.BrowseConfig{
		Service: c.String("service"),
		Timeout: c.Duration("timeout"),
		Logger:  cliLogger(c),
	})
	if err != nil {
		spin.Fail(err.Error())
		return fmt.Errorf("discover: %w", err)
	}
	spin.Success(fmt.Sprintf("%d server(s) found", len(servers)))

	rows := make([]discoveredRow, 0, len(servers))
	for _, s := range servers {
		rows = append(rows, discoveredRow{Instance: s.Instance, URL: s.URL(), Host: s.Host, Info: s.Info})
	}
	return printResult(c, rows)
}
