package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/cli/connection"
	"github.com/yndnr/boardmesh-go/internal/cli/output"
	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/export"
	"github.com/yndnr/boardmesh-go/internal/storage/memory"
	"github.com/yndnr/boardmesh-go/internal/storage/snapshot"
)

// ExportCommand returns the export command.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Download a board as JSON or PDF",
		ArgsUsage: "BOARD",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "json or pdf",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output file, - for stdout (default: BOARD.json or BOARD.pdf)",
			},
			&cli.StringFlag{
				Name:  "orientation",
				Usage: "PDF page orientation: P or L (default: fit the drawing)",
			},
			&cli.BoolFlag{
				Name:  "local",
				Usage: "Render the PDF locally from the JSON snapshot",
			},
		},
		Action: exportAction,
	}
}

func exportAction(c *cli.Context) error {
	board := c.Args().First()
	if err := domain.ValidateBoardName(board); err != nil {
		return err
	}
	format := c.String("format")
	if format != "json" && format != "pdf" {
		return fmt.Errorf("unknown export format %q", format)
	}
	orientation := c.String("orientation")
	if orientation != "" && orientation != "P" && orientation != "L" {
		return fmt.Errorf("orientation must be P or L")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	out := c.String("out")
	if out == "" {
		out = board + "." + format
	}

	ctx, cancel := context.WithTimeout(context.Background(), connection.DefaultHTTPTimeout)
	defer cancel()

	var data bytes.Buffer
	progress := output.NewProgressBar(stderr(c), "Downloading "+board, 0)
	switch {
	case format == "json":
		_, err = client.Download(ctx, "/download/"+url.PathEscape(board), io.MultiWriter(&data, progress))
	case c.Bool("local"):
		err = renderLocal(ctx, client, board, orientation, &data, progress)
	default:
		path := "/export/" + url.PathEscape(board) + "/pdf"
		if orientation != "" {
			path += "?orientation=" + orientation
		}
		_, err = client.Download(ctx, path, io.MultiWriter(&data, progress))
	}
	progress.Finish()
	if err != nil {
		return err
	}

	if out == "-" {
		_, err := data.WriteTo(stdout(c))
		return err
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(out, data.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(stdout(c), "Exported %s to %s (%s)\n", board, out, output.FormatBytes(int64(data.Len())))
	return nil
}

// renderLocal downloads the JSON snapshot and renders it to PDF in the
// client. Elements the server would reject are dropped the same way.
func renderLocal(ctx context.Context, client *connection.HTTPClient, board, orientation string, w io.Writer, progress io.Writer) error {
	var raw bytes.Buffer
	if _, err := client.Download(ctx, "/download/"+url.PathEscape(board), io.MultiWriter(&raw, progress)); err != nil {
		return err
	}
	elements, _, err := snapshot.Decode(raw.Bytes(), domain.DefaultLimits())
	if err != nil {
		return fmt.Errorf("decode %s: %w", board, err)
	}

	canvas := memory.New()
	canvas.Load(elements)

	opts := export.DefaultPDFOptions()
	opts.Title = board
	opts.Orientation = orientation
	return export.WritePDF(w, canvas.All(), opts)
}
