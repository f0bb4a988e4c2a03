package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show the CLI version",
		Action: func(c *cli.Context) error {
			if ParseGlobalFlags(c).Output != "" {
				return printResult(c, buildinfo.Get())
			}
			i := buildinfo.Get()
			fmt.Fprintf(stdout(c), "boardmesh-cli %s\n  commit:   %s\n  built:    %s\n  go:       %s\n  platform: %s\n",
				i.Version, i.Commit, i.BuildTime, i.GoVersion, i.Platform)
			return nil
		},
	}
}
