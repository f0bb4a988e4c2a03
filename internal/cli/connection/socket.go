package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
)

// Board client defaults.
const (
	DefaultReconnectMin = 500 * time.Millisecond
	DefaultReconnectMax = 30 * time.Second
	DefaultSendQueue    = 1024

	writeWait = 10 * time.Second
)

var (
	// ErrQueueFull is returned by Send when the outbound queue is full.
	ErrQueueFull = errors.New("connection: send queue full")
	// ErrClientClosed is returned by Send after Close.
	ErrClientClosed = errors.New("connection: board client closed")
)

// BoardConfig configures a BoardClient.
type BoardConfig struct {
	// URL is the socket endpoint, ws:// or wss://.
	URL   string
	Board string

	// Engine resolves inbound messages. Nil discards them.
	Engine *protocol.Engine

	Dialer *websocket.Dialer
	Header http.Header

	ReconnectMin time.Duration
	ReconnectMax time.Duration
	SendQueue    int

	Logger *slog.Logger

	// OnMessage observes every inbound message after the engine handled
	// it. replay is true for the first frame after each join.
	OnMessage func(msg *domain.Element, replay bool)
	// OnState observes connection changes.
	OnState func(connected bool)
}

// BoardClient keeps one board joined over a websocket. Lost connections
// are redialed with exponential backoff and the board is joined again,
// which delivers a fresh replay. Messages sent while disconnected wait in
// the outbound queue.
type BoardClient struct {
	cfg    BoardConfig
	logger *slog.Logger

	out       chan *domain.Element
	connected atomic.Bool

	closed    chan struct{}
	closeOnce sync.Once
}

// NewBoardClient validates cfg and creates a client. Run connects it.
func NewBoardClient(cfg BoardConfig) (*BoardClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("socket url required")
	}
	if err := domain.ValidateBoardName(cfg.Board); err != nil {
		return nil, err
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = DefaultReconnectMin
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = max(DefaultReconnectMax, cfg.ReconnectMin)
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = DefaultSendQueue
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BoardClient{
		cfg:    cfg,
		logger: logger.With("board", cfg.Board),
		out:    make(chan *domain.Element, cfg.SendQueue),
		closed: make(chan struct{}),
	}, nil
}

// SocketURL derives the socket endpoint from a server address.
func SocketURL(server string) (string, error) {
	base := server
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server address: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server address %q has no host", server)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Board returns the joined board name.
func (c *BoardClient) Board() string { return c.cfg.Board }

// Connected reports whether a connection is currently established.
func (c *BoardClient) Connected() bool { return c.connected.Load() }

// Send queues msg for the board. It implements tools.Sender.
func (c *BoardClient) Send(msg *domain.Element) error {
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}
	select {
	case c.out <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued messages not yet handed to the
// socket.
func (c *BoardClient) Pending() int { return len(c.out) }

// Close stops Run. Queued messages not yet written are discarded.
func (c *BoardClient) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// Run connects and keeps the board joined until ctx is done or Close is
// called.
func (c *BoardClient) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	delay := c.cfg.ReconnectMin
	for {
		joined, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if joined {
			delay = c.cfg.ReconnectMin
		}
		c.logger.Warn("board connection lost", "error", err, "retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		delay = min(delay*2, c.cfg.ReconnectMax)
	}
}

// session runs one connection. joined reports whether the join was sent.
func (c *BoardClient) session(ctx context.Context) (joined bool, err error) {
	conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(protocol.Join(c.cfg.Board)); err != nil {
		return false, fmt.Errorf("join: %w", err)
	}
	c.setConnected(true)
	defer c.setConnected(false)
	c.logger.Info("board joined", "url", c.cfg.URL)

	sessCtx, cancel := context.WithCancel(ctx)
	writerDone := make(chan error, 1)
	go func() { writerDone <- c.writePump(sessCtx, conn) }()

	readErr := c.readPump(ctx, conn)
	cancel()
	writeErr := <-writerDone
	if readErr == nil {
		readErr = writeErr
	}
	return true, readErr
}

func (c *BoardClient) setConnected(v bool) {
	c.connected.Store(v)
	if c.cfg.OnState != nil {
		c.cfg.OnState(v)
	}
}

// readPump feeds inbound frames to the engine until the connection
// fails. A frame that does not decode is logged and skipped.
func (c *BoardClient) readPump(ctx context.Context, conn *websocket.Conn) error {
	replay := true
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			c.logger.Error("protocol violation from server", "error", err)
			continue
		}
		if env.Type != protocol.TypeBroadcast || env.Board != c.cfg.Board {
			continue
		}

		msg := env.Data
		if c.cfg.Engine != nil && (msg.Tool != "" || msg.HasChildren()) {
			if err := c.cfg.Engine.Handle(ctx, msg); err != nil {
				c.logger.Debug("inbound message not applied", "error", err)
			}
		}
		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(msg, replay)
		}
		replay = false
	}
}

// writePump drains the outbound queue. On ctx done it sends a close frame
// so the server can tell a leave from a failure.
func (c *BoardClient) writePump(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
			return nil
		case msg := <-c.out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(protocol.NewBroadcast(c.cfg.Board, msg)); err != nil {
				// Unblock readPump.
				conn.Close()
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}
