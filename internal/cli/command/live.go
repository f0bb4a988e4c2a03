package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/cli/connection"
	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
	"github.com/yndnr/boardmesh-go/internal/storage/memory"
	"github.com/yndnr/boardmesh-go/internal/tools"
)

// Live board timeouts.
const (
	joinTimeout  = 10 * time.Second
	drainTimeout = 5 * time.Second
)

// liveBoard is a joined board with a local canvas and the built-in tools.
type liveBoard struct {
	name   string
	client *connection.BoardClient
	canvas *memory.Store
	tools  *tools.Set
	logger *slog.Logger

	joined     chan struct{}
	joinedOnce sync.Once

	cancel context.CancelFunc
	done   chan struct{}
}

// openBoard connects to board on the resolved server and starts the
// client. onMessage, if set, sees every inbound message after the local
// canvas has been updated.
func openBoard(c *cli.Context, board string, onMessage func(msg *domain.Element, replay bool)) (*liveBoard, error) {
	if err := domain.ValidateBoardName(board); err != nil {
		return nil, err
	}
	url, err := connection.SocketURL(ServerAddress(c))
	if err != nil {
		return nil, err
	}

	lb := &liveBoard{
		name:   board,
		canvas: memory.New(),
		logger: cliLogger(c),
		joined: make(chan struct{}),
		done:   make(chan struct{}),
	}
	engine := protocol.NewEngine(protocol.EngineConfig{Logger: lb.logger})
	lb.client, err = connection.NewBoardClient(connection.BoardConfig{
		URL:    url,
		Board:  board,
		Engine: engine,
		Logger: lb.logger,
		OnMessage: func(msg *domain.Element, replay bool) {
			if replay {
				lb.joinedOnce.Do(func() { close(lb.joined) })
			}
			if onMessage != nil {
				onMessage(msg, replay)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	lb.tools = tools.NewSet(tools.Options{
		Canvas: lb.canvas,
		Sender: lb.client,
		Style:  tools.DefaultStyle(),
		Logger: lb.logger,
	}, tools.DefaultConfig())
	for _, t := range lb.tools.All() {
		engine.Register(t)
	}

	ctx, cancel := context.WithCancel(context.Background())
	lb.cancel = cancel
	go func() {
		defer close(lb.done)
		lb.client.Run(ctx)
	}()
	return lb, nil
}

// waitJoined blocks until the first replay arrived.
func (lb *liveBoard) waitJoined(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	select {
	case <-lb.joined:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("join %s: %w", lb.name, ctx.Err())
	}
}

// close waits for queued messages to be written, then leaves the board.
func (lb *liveBoard) close() {
	deadline := time.Now().Add(drainTimeout)
	for lb.client.Pending() > 0 && lb.client.Connected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := lb.client.Pending(); n > 0 {
		lb.logger.Warn("leaving board with unsent messages", "board", lb.name, "messages", n)
	}
	lb.cancel()
	<-lb.done
}
