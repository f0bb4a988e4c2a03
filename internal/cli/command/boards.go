package command

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/cli/connection"
	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/storage/snapshot"
)

// BoardsCommand returns the boards subcommand group.
func BoardsCommand() *cli.Command {
	return &cli.Command{
		Name:  "boards",
		Usage: "Inspect boards",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List resident and persisted boards",
				Action: boardsList,
			},
			{
				Name:      "show",
				Usage:     "Show one board",
				ArgsUsage: "BOARD",
				Action:    boardsShow,
			},
		},
	}
}

// boardRow merges the resident and persisted views of one board.
type boardRow struct {
	Name         string    `json:"name"`
	Resident     bool      `json:"resident"`
	Elements     int       `json:"elements"`
	Participants int       `json:"participants"`
	Dirty        bool      `json:"dirty" table:"wide"`
	LastFlush    time.Time `json:"last_flush" table:"wide"`
	Size         int64     `json:"size" table:"bytes"`
	ModifiedAt   time.Time `json:"modified_at"`
}

func mergeBoards(resident []service.BoardStats, persisted []snapshot.Info) []boardRow {
	rows := make(map[string]*boardRow)
	get := func(name string) *boardRow {
		r, ok := rows[name]
		if !ok {
			r = &boardRow{Name: name}
			rows[name] = r
		}
		return r
	}
	for _, s := range resident {
		r := get(s.Name)
		r.Resident = true
		r.Elements = s.Elements
		r.Participants = s.Participants
		r.Dirty = s.Dirty
		r.LastFlush = s.LastFlush
	}
	for _, p := range persisted {
		r := get(p.Board)
		r.Size = p.Size
		r.ModifiedAt = p.ModifiedAt
	}

	out := make([]boardRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func boardsList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connection.DefaultHTTPTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/api/v1/boards")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var result struct {
		Resident  []service.BoardStats `json:"resident"`
		Persisted []snapshot.Info      `json:"persisted"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return printResult(c, mergeBoards(result.Resident, result.Persisted))
}

func boardsShow(c *cli.Context) error {
	board := c.Args().First()
	if board == "" {
		return fmt.Errorf("board name required")
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connection.DefaultHTTPTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/api/v1/boards/"+url.PathEscape(board))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var stats service.BoardStats
	if err := connection.ParseResponse(resp, &stats); err != nil {
		return err
	}
	return printResult(c, stats)
}
