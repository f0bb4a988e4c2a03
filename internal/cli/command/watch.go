package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Join a board and print its messages",
		ArgsUsage: "BOARD",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "Stop after this long (default: until interrupted)",
			},
		},
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	board := c.Args().First()
	w := stdout(c)
	asJSON := ParseGlobalFlags(c).Output == "json"

	var mu sync.Mutex
	lb, err := openBoard(c, board, func(msg *domain.Element, replay bool) {
		mu.Lock()
		defer mu.Unlock()
		if asJSON {
			writeWatchJSON(w, msg, replay)
			return
		}
		writeWatchLine(w, msg, replay)
	})
	if err != nil {
		return err
	}
	defer lb.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := lb.waitJoined(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func writeWatchLine(w io.Writer, msg *domain.Element, replay bool) {
	ts := time.Now().Format("15:04:05.000")
	if replay {
		fmt.Fprintf(w, "%s replay %d elements\n", ts, len(msg.Children))
		return
	}
	if msg.HasChildren() && msg.Tool == "" {
		fmt.Fprintf(w, "%s batch %d messages\n", ts, len(msg.Children))
		return
	}
	id := msg.ID
	if id == "" {
		id = msg.Parent
	}
	fmt.Fprintf(w, "%s %-9s %-8s %s\n", ts, msg.Tool, msg.Type, id)
}

func writeWatchJSON(w io.Writer, msg *domain.Element, replay bool) {
	line := struct {
		Time    time.Time       `json:"time"`
		Replay  bool            `json:"replay"`
		Message *domain.Element `json:"message"`
	}{time.Now(), replay, msg}
	json.NewEncoder(w).Encode(line)
}
