package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/protocol"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

// Socket defaults.
const (
	DefaultSendQueue      = 256
	DefaultBufferSize     = 4096
	DefaultMaxMessageSize = 1 << 20
	DefaultWriteWait      = 10 * time.Second
	DefaultPongWait       = 60 * time.Second
)

var errSocketClosed = errors.New("handler: socket closed")

// SocketConfig configures the /ws endpoint.
type SocketConfig struct {
	// SendQueue is the number of outbound frames buffered per connection.
	// A connection whose queue overflows is closed.
	SendQueue      int
	BufferSize     int
	MaxMessageSize int64
	WriteWait      time.Duration
	// PongWait is how long a connection may stay silent. Pings go out at
	// nine tenths of it.
	PongWait time.Duration
}

func (c SocketConfig) withDefaults() SocketConfig {
	if c.SendQueue <= 0 {
		c.SendQueue = DefaultSendQueue
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.WriteWait <= 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = DefaultPongWait
	}
	return c
}

// socketParticipant is one WebSocket connection attached to boards.
type socketParticipant struct {
	id   string
	conn *websocket.Conn
	send chan *protocol.Envelope

	closeOnce sync.Once
	closeCode int
	done      chan struct{}
}

func newSocketParticipant(conn *websocket.Conn, queue int) *socketParticipant {
	return &socketParticipant{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan *protocol.Envelope, queue),
		done: make(chan struct{}),
	}
}

func (p *socketParticipant) ID() string { return p.id }

// Send queues env without blocking. A full queue closes the connection so
// the client reconnects and receives a fresh replay.
func (p *socketParticipant) Send(env *protocol.Envelope) error {
	select {
	case <-p.done:
		return errSocketClosed
	default:
	}
	select {
	case p.send <- env:
		return nil
	default:
		p.close(websocket.CloseTryAgainLater)
		return service.ErrSendQueueFull
	}
}

// close stops the write pump, which sends a close frame with code.
func (p *socketParticipant) close(code int) {
	p.closeOnce.Do(func() {
		p.closeCode = code
		close(p.done)
	})
}

// socketSet tracks live connections for shutdown.
type socketSet struct {
	mu    sync.Mutex
	conns map[string]*socketParticipant
}

func newSocketSet() *socketSet {
	return &socketSet{conns: make(map[string]*socketParticipant)}
}

func (s *socketSet) add(p *socketParticipant) {
	s.mu.Lock()
	s.conns[p.id] = p
	s.mu.Unlock()
}

func (s *socketSet) remove(p *socketParticipant) {
	s.mu.Lock()
	delete(s.conns, p.id)
	s.mu.Unlock()
}

func (s *socketSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *socketSet) closeAll(code int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.conns {
		p.close(code)
	}
	return len(s.conns)
}

// CloseSockets asks every open connection to close and returns how many
// were open.
func (h *Handler) CloseSockets() int {
	return h.sockets.closeAll(websocket.CloseGoingAway)
}

// handleSocket handles GET /ws.
func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		logger.L(r.Context()).Debug("socket upgrade failed", "error", err)
		return
	}

	p := newSocketParticipant(conn, h.socket.SendQueue)
	ctx := logger.WithParticipantID(r.Context(), p.id)
	log := logger.L(ctx)

	h.sockets.add(p)
	log.Debug("socket connected", "client_ip", r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(ctx, p)
	}()

	h.readPump(ctx, p)

	h.registry.LeaveAll(p)
	p.close(websocket.CloseNormalClosure)
	<-writerDone
	h.sockets.remove(p)
	log.Debug("socket disconnected")
}

// readPump dispatches inbound frames until the connection fails or closes.
func (h *Handler) readPump(ctx context.Context, p *socketParticipant) {
	log := logger.L(ctx)
	conn := p.conn

	conn.SetReadLimit(h.socket.MaxMessageSize)
	conn.SetReadDeadline(h.now().Add(h.socket.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(h.now().Add(h.socket.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debug("socket read failed", "error", err)
			}
			return
		}
		conn.SetReadDeadline(h.now().Add(h.socket.PongWait))

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			h.metrics.MessagesDropped.WithLabelValues("protocol_violation").Inc()
			log.Error("protocol violation, frame dropped", "bytes", len(data), "error", err)
			continue
		}
		h.metrics.Messages.WithLabelValues(env.Type).Inc()

		switch env.Type {
		case protocol.TypeJoin:
			err = h.registry.Join(ctx, env.Board, p)
		case protocol.TypeBroadcast:
			err = h.registry.Broadcast(ctx, env.Board, p, env.Data)
		}
		if err != nil {
			log.Debug("message rejected", "type", env.Type, "board", env.Board, "error", err)
		}
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. It owns all writes to the connection and closes it on return.
func (h *Handler) writePump(ctx context.Context, p *socketParticipant) {
	conn := p.conn
	ticker := time.NewTicker(h.socket.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case env := <-p.send:
			conn.SetWriteDeadline(h.now().Add(h.socket.WriteWait))
			if err := conn.WriteJSON(env); err != nil {
				logger.L(ctx).Debug("socket write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(h.now().Add(h.socket.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.done:
			msg := websocket.FormatCloseMessage(p.closeCode, "")
			conn.WriteControl(websocket.CloseMessage, msg, h.now().Add(h.socket.WriteWait))
			return
		}
	}
}
