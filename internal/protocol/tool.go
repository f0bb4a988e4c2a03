package protocol

import (
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// Input is one pointer event delivered to a tool.
type Input struct {
	X, Y float64
	// Target is the id of the element under the pointer, if any.
	Target string
	// Stylus marks pen input, as opposed to mouse or finger.
	Stylus bool
	// Secondary selects the tool's alternate mode.
	Secondary bool
	Time      time.Time
}

// Tool is a drawing tool. Press, Move and Release translate local input
// into messages, drawing them locally and sending them. Draw applies a
// message to the local canvas; local is true for messages the tool
// produced itself.
type Tool interface {
	Name() string
	Press(in Input) error
	Move(in Input) error
	Release(in Input) error
	Draw(msg *domain.Element, local bool) error
}
