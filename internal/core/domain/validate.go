package domain

import "math"

// Element bounds.
const (
	MinSize    = 1
	MaxSize    = 50
	MinOpacity = 0.1
	MaxOpacity = 1

	DefaultMaxBoardSize = 65536
	DefaultMaxChildren  = 192
	DefaultMaxItemCount = 32768
)

// Limits holds the configurable bounds applied by Sanitize.
type Limits struct {
	// MaxBoardSize is the largest coordinate value on either axis.
	MaxBoardSize float64
	// MaxChildren caps the length of every children sequence.
	MaxChildren int
}

// DefaultLimits returns the stock element bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxBoardSize: DefaultMaxBoardSize,
		MaxChildren:  DefaultMaxChildren,
	}
}

// Sanitize clamps every present numeric field of e to its range, replaces
// malformed values with the field default, truncates the children sequence
// and recurses into each child. It never rejects an element and is
// idempotent.
func Sanitize(e *Element, lim Limits) {
	if e == nil {
		return
	}

	if e.Size != nil {
		size := math.Trunc(e.Size.Float(0))
		if size == 0 || math.IsNaN(size) {
			size = MinSize
		}
		e.Size = Num(clamp(size, MinSize, MaxSize))
	}

	sanitizePoint(&e.X, &e.Y, lim.MaxBoardSize)
	sanitizePoint(&e.X2, &e.Y2, lim.MaxBoardSize)

	if e.Opacity != nil {
		opacity := e.Opacity.Float(MaxOpacity)
		if math.IsNaN(opacity) {
			opacity = MaxOpacity
		}
		opacity = clamp(opacity, MinOpacity, MaxOpacity)
		if opacity == MaxOpacity {
			e.Opacity = nil
		} else {
			e.Opacity = Num(opacity)
		}
	}

	if e.Children != nil {
		if lim.MaxChildren >= 0 && len(e.Children) > lim.MaxChildren {
			e.Children = e.Children[:lim.MaxChildren]
		}
		kept := e.Children[:0]
		for _, child := range e.Children {
			if child == nil {
				continue
			}
			Sanitize(child, lim)
			kept = append(kept, child)
		}
		e.Children = kept
	}
}

// sanitizePoint normalizes a coordinate pair. When either member is present
// both are written, with a missing member defaulting to 0.
func sanitizePoint(x, y **Number, max float64) {
	if *x == nil && *y == nil {
		return
	}
	*x = Num(coordinate(*x, max))
	*y = Num(coordinate(*y, max))
}

func coordinate(n *Number, max float64) float64 {
	v := n.Float(0)
	if math.IsNaN(v) {
		v = 0
	}
	v = clamp(v, 0, max)
	return math.Floor(v*10+0.5) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
