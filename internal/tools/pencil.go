package tools

import (
	"sync"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
	"github.com/yndnr/boardmesh-go/pkg/throttle"
)

// Pencil draws free-hand lines: a line element followed by child points.
type Pencil struct {
	base
	throttle     *throttle.Limiter
	autoWhiteOut bool

	mu         sync.Mutex
	style      Style
	current    string
	whiteOut   bool
	usedStylus bool

	// Sizes remembered for the mode not in use. Zero means never set.
	drawingSize  float64
	whiteOutSize float64
}

var _ protocol.Tool = (*Pencil)(nil)

// NewPencil creates a pencil emitting at most cfg.EmitCount points per
// cfg.EmitPeriod.
func NewPencil(opts Options, cfg Config) *Pencil {
	return &Pencil{
		base:         newBase(opts),
		throttle:     throttle.New(cfg.EmitCount, cfg.EmitPeriod),
		autoWhiteOut: cfg.AutoWhiteOut,
		style:        opts.Style,
	}
}

// Name implements protocol.Tool.
func (p *Pencil) Name() string { return PencilName }

// SetStyle changes the style of subsequent lines.
func (p *Pencil) SetStyle(s Style) {
	p.mu.Lock()
	p.style = s
	p.mu.Unlock()
}

// SetWhiteOut toggles the white-out mode. The current line ends.
func (p *Pencil) SetWhiteOut(on bool) {
	p.mu.Lock()
	p.setWhiteOut(on)
	p.current = ""
	p.mu.Unlock()
}

// setWhiteOut switches mode, swapping the style size with the size last
// used in the other mode. Caller holds p.mu.
func (p *Pencil) setWhiteOut(on bool) {
	if on == p.whiteOut {
		return
	}
	p.whiteOut = on
	if on {
		p.drawingSize = p.style.Size
		if p.whiteOutSize > 0 {
			p.style.Size = p.whiteOutSize
		}
		return
	}
	p.whiteOutSize = p.style.Size
	if p.drawingSize > 0 {
		p.style.Size = p.drawingSize
	}
}

// Style returns the style of the next line.
func (p *Pencil) Style() Style {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.style
}

// WhiteOut reports whether white-out is active.
func (p *Pencil) WhiteOut() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.whiteOut
}

// CurrentLine returns the id of the line being drawn, or "".
func (p *Pencil) CurrentLine() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Press starts a new line at the input position.
func (p *Pencil) Press(in protocol.Input) error {
	p.mu.Lock()
	if p.autoWhiteOut {
		p.switchByInput(in)
	}
	p.current = domain.NewElementID(domain.LinePrefix)
	msg := &domain.Element{
		ID:      p.current,
		Type:    domain.TypeLine,
		Color:   p.style.Color,
		Size:    domain.Num(p.style.Size),
		Opacity: domain.Num(p.style.Opacity),
	}
	if p.whiteOut {
		msg.Color = WhiteOutColor
		msg.Opacity = domain.Num(1)
	}
	p.mu.Unlock()

	if err := p.drawAndSend(p, msg); err != nil {
		return err
	}
	return p.point(in, true)
}

// switchByInput applies the automatic white-out rule: after a stylus has
// been used, the stylus draws and any other input whites out. Caller
// holds p.mu.
func (p *Pencil) switchByInput(in protocol.Input) {
	if in.Stylus {
		if p.usedStylus && p.whiteOut {
			p.setWhiteOut(false)
		}
		p.usedStylus = true
		return
	}
	if p.usedStylus && !p.whiteOut {
		p.setWhiteOut(true)
	}
}

// Move adds a point to the current line. Points faster than the emit
// interval are drawn but not sent.
func (p *Pencil) Move(in protocol.Input) error {
	return p.point(in, false)
}

// Release adds the final point and ends the line.
func (p *Pencil) Release(in protocol.Input) error {
	err := p.point(in, true)
	p.mu.Lock()
	p.current = ""
	p.mu.Unlock()
	return err
}

func (p *Pencil) point(in protocol.Input, force bool) error {
	p.mu.Lock()
	parent := p.current
	p.mu.Unlock()
	if parent == "" {
		return nil
	}

	msg := &domain.Element{
		Type:   domain.TypeChild,
		Parent: parent,
		X:      domain.Num(in.X),
		Y:      domain.Num(in.Y),
	}
	t := p.when(in)
	if force {
		p.throttle.ForceAt(t)
		return p.drawAndSend(p, msg)
	}
	if p.throttle.AllowAt(t) {
		return p.drawAndSend(p, msg)
	}
	msg.Tool = p.Name()
	return p.Draw(msg, true)
}

// Draw implements protocol.Tool. A point for a line that does not exist
// creates a placeholder line so the points are not lost.
func (p *Pencil) Draw(msg *domain.Element, _ bool) error {
	switch msg.Type {
	case domain.TypeLine:
		// Points arrive as their own child messages.
		line := msg.Clone()
		line.Children = nil
		p.canvas.Set(line.ID, line)
	case domain.TypeChild:
		if !p.canvas.AddChild(msg.Parent, msg) {
			p.logger.Error("pencil: point of a line that has not been created", "parent", msg.Parent)
			p.canvas.Set(msg.Parent, &domain.Element{ID: msg.Parent, Type: domain.TypeLine, Tool: p.Name()})
			p.canvas.AddChild(msg.Parent, msg)
		}
	case domain.TypeEndLine:
	default:
		return domain.ErrUnknownType.WithDetails("pencil: " + msg.Type)
	}
	return nil
}
