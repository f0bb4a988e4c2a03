package tools

import (
	"sync"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
	"github.com/yndnr/boardmesh-go/pkg/throttle"
)

// Hand moves existing elements. A move is an update carrying the absolute
// translation of the element as deltax and deltay.
type Hand struct {
	base
	throttle *throttle.Limiter

	mu       sync.Mutex
	selected string
	// Press position minus the element's translation at press time.
	originX, originY float64
}

var _ protocol.Tool = (*Hand)(nil)

// NewHand creates a hand tool.
func NewHand(opts Options) *Hand {
	return &Hand{
		base:     newBase(opts),
		throttle: throttle.Every(ShapeUpdateInterval),
	}
}

// Name implements protocol.Tool.
func (h *Hand) Name() string { return HandName }

// Press selects the element under the pointer.
func (h *Hand) Press(in protocol.Input) error {
	if in.Target == "" {
		return nil
	}
	el, ok := h.canvas.Get(in.Target)
	if !ok {
		return nil
	}

	h.mu.Lock()
	h.selected = in.Target
	h.originX = in.X - el.DeltaX.Float(0)
	h.originY = in.Y - el.DeltaY.Float(0)
	h.mu.Unlock()
	return nil
}

// Move translates the selected element.
func (h *Hand) Move(in protocol.Input) error {
	return h.move(in, false)
}

// Release sends the final translation and drops the selection.
func (h *Hand) Release(in protocol.Input) error {
	err := h.move(in, true)
	h.mu.Lock()
	h.selected = ""
	h.mu.Unlock()
	return err
}

func (h *Hand) move(in protocol.Input, end bool) error {
	h.mu.Lock()
	if h.selected == "" {
		h.mu.Unlock()
		return nil
	}
	msg := &domain.Element{
		ID:     h.selected,
		Type:   domain.TypeUpdate,
		DeltaX: domain.Num(in.X - h.originX),
		DeltaY: domain.Num(in.Y - h.originY),
	}
	h.mu.Unlock()

	t := h.when(in)
	if end {
		h.throttle.ForceAt(t)
		return h.drawAndSend(h, msg)
	}
	if h.throttle.AllowAt(t) {
		return h.drawAndSend(h, msg)
	}
	msg.Tool = h.Name()
	return h.Draw(msg, true)
}

// Draw implements protocol.Tool.
func (h *Hand) Draw(msg *domain.Element, _ bool) error {
	if msg.Type != domain.TypeUpdate {
		return domain.ErrUnknownType.WithDetails("hand: " + msg.Type)
	}
	move := &domain.Element{
		DeltaX: domain.Num(msg.DeltaX.Float(0)),
		DeltaY: domain.Num(msg.DeltaY.Float(0)),
	}
	if !h.canvas.Update(msg.ID, move, false) {
		h.logger.Error("hand: tried to move an element that does not exist", "element_id", msg.ID)
		return domain.ErrElementNotFound.WithDetails(msg.ID)
	}
	return nil
}
