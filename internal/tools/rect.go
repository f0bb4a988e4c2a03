package tools

import (
	"math"
	"sync"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
	"github.com/yndnr/boardmesh-go/pkg/throttle"
)

// Rect draws rectangles by dragging from one corner to the other.
type Rect struct {
	base
	throttle *throttle.Limiter

	mu     sync.Mutex
	style  Style
	square bool
	id     string
	x, y   float64
}

var _ protocol.Tool = (*Rect)(nil)

// NewRect creates a rectangle tool.
func NewRect(opts Options) *Rect {
	return &Rect{
		base:     newBase(opts),
		throttle: throttle.Every(ShapeUpdateInterval),
		style:    opts.Style,
	}
}

// Name implements protocol.Tool.
func (r *Rect) Name() string { return RectName }

// SetStyle changes the style of subsequent rectangles.
func (r *Rect) SetStyle(s Style) {
	r.mu.Lock()
	r.style = s
	r.mu.Unlock()
}

// SetSquare constrains drags to squares.
func (r *Rect) SetSquare(on bool) {
	r.mu.Lock()
	r.square = on
	r.mu.Unlock()
}

// Current returns the id of the rectangle being drawn, or "".
func (r *Rect) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

// Press creates a degenerate rectangle at the input position.
func (r *Rect) Press(in protocol.Input) error {
	r.mu.Lock()
	r.id = domain.NewElementID(domain.RectPrefix)
	r.x, r.y = in.X, in.Y
	msg := &domain.Element{
		ID:      r.id,
		Type:    domain.TypeRect,
		Color:   r.style.Color,
		Size:    domain.Num(r.style.Size),
		Opacity: domain.Num(r.style.Opacity),
		X:       domain.Num(in.X),
		Y:       domain.Num(in.Y),
		X2:      domain.Num(in.X),
		Y2:      domain.Num(in.Y),
	}
	r.mu.Unlock()

	r.throttle.ForceAt(r.when(in))
	return r.drawAndSend(r, msg)
}

// Move drags the second corner.
func (r *Rect) Move(in protocol.Input) error {
	return r.drag(in, false)
}

// Release sends the final corner and ends the rectangle.
func (r *Rect) Release(in protocol.Input) error {
	err := r.drag(in, true)
	r.mu.Lock()
	r.id = ""
	r.mu.Unlock()
	return err
}

func (r *Rect) drag(in protocol.Input, end bool) error {
	r.mu.Lock()
	if r.id == "" {
		r.mu.Unlock()
		return nil
	}
	x2, y2 := in.X, in.Y
	if r.square {
		dx, dy := x2-r.x, y2-r.y
		d := math.Max(math.Abs(dx), math.Abs(dy))
		x2 = r.x + math.Copysign(d, dx)
		y2 = r.y + math.Copysign(d, dy)
	}
	msg := &domain.Element{
		ID:   r.id,
		Type: domain.TypeUpdate,
		X:    domain.Num(r.x),
		Y:    domain.Num(r.y),
		X2:   domain.Num(x2),
		Y2:   domain.Num(y2),
	}
	r.mu.Unlock()

	t := r.when(in)
	if end {
		r.throttle.ForceAt(t)
		return r.drawAndSend(r, msg)
	}
	if r.throttle.AllowAt(t) {
		return r.drawAndSend(r, msg)
	}
	msg.Tool = r.Name()
	return r.Draw(msg, true)
}

// Draw implements protocol.Tool. An update for a missing rectangle creates
// it at the updated corner first.
func (r *Rect) Draw(msg *domain.Element, _ bool) error {
	switch msg.Type {
	case domain.TypeRect:
		r.canvas.Set(msg.ID, msg)
	case domain.TypeUpdate:
		if !r.canvas.Update(msg.ID, msg, false) {
			r.logger.Error("rect: update of a rectangle that has not been created", "element_id", msg.ID)
			r.canvas.Set(msg.ID, &domain.Element{ID: msg.ID, Type: domain.TypeRect, Tool: r.Name(), X: msg.X2, Y: msg.Y2})
			r.canvas.Update(msg.ID, msg, false)
		}
	default:
		return domain.ErrUnknownType.WithDetails("rect: " + msg.Type)
	}
	return nil
}
