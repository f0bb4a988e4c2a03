package tools

import (
	"sync"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
)

// Eraser deletes the elements it passes over while pressed.
type Eraser struct {
	base

	mu      sync.Mutex
	erasing bool
}

var _ protocol.Tool = (*Eraser)(nil)

// NewEraser creates an eraser.
func NewEraser(opts Options) *Eraser {
	return &Eraser{base: newBase(opts)}
}

// Name implements protocol.Tool.
func (e *Eraser) Name() string { return EraserName }

// Press starts erasing and erases the target under the pointer.
func (e *Eraser) Press(in protocol.Input) error {
	e.mu.Lock()
	e.erasing = true
	e.mu.Unlock()
	return e.erase(in)
}

// Move erases the target under the pointer while pressed.
func (e *Eraser) Move(in protocol.Input) error {
	return e.erase(in)
}

// Release stops erasing.
func (e *Eraser) Release(protocol.Input) error {
	e.mu.Lock()
	e.erasing = false
	e.mu.Unlock()
	return nil
}

func (e *Eraser) erase(in protocol.Input) error {
	e.mu.Lock()
	erasing := e.erasing
	e.mu.Unlock()
	if !erasing || in.Target == "" {
		return nil
	}
	return e.drawAndSend(e, &domain.Element{ID: in.Target, Type: domain.TypeDelete})
}

// Draw implements protocol.Tool.
func (e *Eraser) Draw(msg *domain.Element, _ bool) error {
	if msg.Type != domain.TypeDelete {
		return domain.ErrUnknownType.WithDetails("eraser: " + msg.Type)
	}
	if !e.canvas.Delete(msg.ID) {
		e.logger.Error("eraser: tried to delete an element that does not exist", "element_id", msg.ID)
	}
	return nil
}
