package tools

import (
	"log/slog"
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
	"github.com/yndnr/boardmesh-go/internal/storage/memory"
)

// Tool names.
const (
	PencilName = "Pencil"
	RectName   = "Rectangle"
	EraserName = "Eraser"
	HandName   = "Hand"
)

// ShapeUpdateInterval is the minimum gap between sent shape and move
// updates.
const ShapeUpdateInterval = 70 * time.Millisecond

// WhiteOutColor is the color of the pencil's white-out mode.
const WhiteOutColor = "#ffffff"

// Sender delivers a message produced by a local tool to the board.
type Sender interface {
	Send(msg *domain.Element) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(msg *domain.Element) error

// Send implements Sender.
func (f SenderFunc) Send(msg *domain.Element) error { return f(msg) }

// Style is the current drawing style.
type Style struct {
	Color   string
	Size    float64
	Opacity float64
}

// DefaultStyle returns the style a new participant starts with.
func DefaultStyle() Style {
	return Style{Color: "#001f3f", Size: 4, Opacity: 1}
}

// Options are shared by every tool.
type Options struct {
	Canvas *memory.Store
	Sender Sender
	Style  Style
	Now    func() time.Time
	Logger *slog.Logger
}

// base carries what every tool needs.
type base struct {
	canvas *memory.Store
	sender Sender
	now    func() time.Time
	logger *slog.Logger
}

func newBase(opts Options) base {
	b := base{
		canvas: opts.Canvas,
		sender: opts.Sender,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if b.canvas == nil {
		b.canvas = memory.New()
	}
	if b.sender == nil {
		b.sender = SenderFunc(func(*domain.Element) error { return nil })
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// drawAndSend draws msg locally as t and sends it.
func (b *base) drawAndSend(t protocol.Tool, msg *domain.Element) error {
	msg.Tool = t.Name()
	if err := t.Draw(msg, true); err != nil {
		return err
	}
	return b.sender.Send(msg)
}

// when returns the event time of in, defaulting to now.
func (b *base) when(in protocol.Input) time.Time {
	if in.Time.IsZero() {
		return b.now()
	}
	return in.Time
}

// Config configures the built-in tool set.
type Config struct {
	// EmitCount points per EmitPeriod is the pencil's emit rate.
	EmitCount  int
	EmitPeriod time.Duration
	// AutoWhiteOut switches the pencil between drawing and white-out by
	// input kind once a stylus has been used.
	AutoWhiteOut bool
}

// DefaultConfig returns the stock tool configuration.
func DefaultConfig() Config {
	return Config{
		EmitCount:    192,
		EmitPeriod:   4096 * time.Millisecond,
		AutoWhiteOut: true,
	}
}

// Set is the built-in tool set sharing one canvas.
type Set struct {
	Pencil *Pencil
	Rect   *Rect
	Eraser *Eraser
	Hand   *Hand
}

// NewSet creates every built-in tool.
func NewSet(opts Options, cfg Config) *Set {
	if opts.Canvas == nil {
		opts.Canvas = memory.New()
	}
	return &Set{
		Pencil: NewPencil(opts, cfg),
		Rect:   NewRect(opts),
		Eraser: NewEraser(opts),
		Hand:   NewHand(opts),
	}
}

// All returns the tools for registration with a protocol.Engine.
func (s *Set) All() []protocol.Tool {
	return []protocol.Tool{s.Pencil, s.Rect, s.Eraser, s.Hand}
}
