package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// pxToMM converts board pixels to millimetres at 96 dpi.
const pxToMM = 25.4 / 96

// PDFOptions configures WritePDF.
type PDFOptions struct {
	// Orientation is "P" or "L". Empty picks the one matching the drawing.
	Orientation string
	// Size is a gofpdf page size name such as "A4".
	Size   string
	Margin float64
	Title  string
}

// DefaultPDFOptions returns A4 with a 10mm margin.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{Size: "A4", Margin: 10}
}

// bounds is an axis-aligned box in board coordinates.
type bounds struct {
	minX, minY, maxX, maxY float64
	empty                  bool
}

func newBounds() bounds {
	return bounds{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1), empty: true}
}

func (b *bounds) add(x, y float64) {
	b.minX = math.Min(b.minX, x)
	b.minY = math.Min(b.minY, y)
	b.maxX = math.Max(b.maxX, x)
	b.maxY = math.Max(b.maxY, y)
	b.empty = false
}

// shape is an element reduced to what the renderer needs.
type shape struct {
	kind    string
	points  [][2]float64
	text    string
	color   [3]int
	width   float64
	opacity float64
}

// WritePDF renders elements onto a single page and writes the document to w.
func WritePDF(w io.Writer, elements []*domain.Element, opts PDFOptions) error {
	if opts.Size == "" {
		opts.Size = "A4"
	}

	shapes := make([]shape, 0, len(elements))
	box := newBounds()
	for _, e := range elements {
		s, ok := toShape(e)
		if !ok {
			continue
		}
		pad := s.width / 2
		for _, p := range s.points {
			box.add(p[0]-pad, p[1]-pad)
			box.add(p[0]+pad, p[1]+pad)
		}
		shapes = append(shapes, s)
	}

	orientation := opts.Orientation
	if orientation == "" {
		orientation = "P"
		if !box.empty && box.maxX-box.minX > box.maxY-box.minY {
			orientation = "L"
		}
	}

	pdf := gofpdf.New(orientation, "mm", opts.Size, "")
	pdf.SetCreator("boardmesh", true)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	pdf.AddPage()
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	if !box.empty {
		pageW, pageH := pdf.GetPageSize()
		scale := pxToMM
		bw, bh := box.maxX-box.minX, box.maxY-box.minY
		if bw > 0 && bh > 0 {
			fit := math.Min((pageW-2*opts.Margin)/bw, (pageH-2*opts.Margin)/bh)
			scale = math.Min(scale, fit)
		}
		tx := func(x float64) float64 { return opts.Margin + (x-box.minX)*scale }
		ty := func(y float64) float64 { return opts.Margin + (y-box.minY)*scale }

		for _, s := range shapes {
			draw(pdf, s, scale, tx, ty)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: write pdf: %w", err)
	}
	return nil
}

func draw(pdf *gofpdf.Fpdf, s shape, scale float64, tx, ty func(float64) float64) {
	pdf.SetAlpha(s.opacity, "Normal")
	pdf.SetDrawColor(s.color[0], s.color[1], s.color[2])
	pdf.SetFillColor(s.color[0], s.color[1], s.color[2])
	pdf.SetLineWidth(math.Max(s.width*scale, 0.1))

	switch s.kind {
	case domain.TypeLine:
		if len(s.points) == 1 {
			pdf.Circle(tx(s.points[0][0]), ty(s.points[0][1]), math.Max(s.width*scale/2, 0.1), "F")
			return
		}
		for i := 1; i < len(s.points); i++ {
			a, b := s.points[i-1], s.points[i]
			pdf.Line(tx(a[0]), ty(a[1]), tx(b[0]), ty(b[1]))
		}
	case domain.TypeStraight:
		a, b := s.points[0], s.points[1]
		pdf.Line(tx(a[0]), ty(a[1]), tx(b[0]), ty(b[1]))
	case domain.TypeRect:
		x1, y1 := tx(s.points[0][0]), ty(s.points[0][1])
		x2, y2 := tx(s.points[1][0]), ty(s.points[1][1])
		pdf.Rect(math.Min(x1, x2), math.Min(y1, y2), math.Abs(x2-x1), math.Abs(y2-y1), "D")
	case domain.TypeEllipse:
		x1, y1 := tx(s.points[0][0]), ty(s.points[0][1])
		x2, y2 := tx(s.points[1][0]), ty(s.points[1][1])
		pdf.Ellipse((x1+x2)/2, (y1+y2)/2, math.Abs(x2-x1)/2, math.Abs(y2-y1)/2, 0, "D")
	case domain.TypeText:
		pdf.SetTextColor(s.color[0], s.color[1], s.color[2])
		pdf.SetFont("Helvetica", "", math.Max(s.width*scale*72/25.4, 4))
		pdf.Text(tx(s.points[0][0]), ty(s.points[0][1]), s.text)
	}
}

// toShape extracts the geometry of a drawable element, applying any hand
// translation it carries.
func toShape(e *domain.Element) (shape, bool) {
	s := shape{
		kind:    e.Type,
		color:   parseColor(e.Color),
		width:   e.Size.Float(4),
		opacity: clampOpacity(e.Opacity.Float(1)),
	}
	dx, dy := e.DeltaX.Float(0), e.DeltaY.Float(0)
	at := func(x, y *domain.Number) [2]float64 {
		return [2]float64{x.Float(0) + dx, y.Float(0) + dy}
	}

	switch e.Type {
	case domain.TypeLine:
		for _, c := range e.Children {
			if c == nil || c.X == nil || c.Y == nil {
				continue
			}
			s.points = append(s.points, at(c.X, c.Y))
		}
		return s, len(s.points) > 0
	case domain.TypeRect, domain.TypeEllipse, domain.TypeStraight:
		if e.X == nil || e.Y == nil || e.X2 == nil || e.Y2 == nil {
			return s, false
		}
		s.points = [][2]float64{at(e.X, e.Y), at(e.X2, e.Y2)}
		return s, true
	case domain.TypeText:
		var txt string
		if raw, ok := e.Extra["txt"]; ok {
			_ = json.Unmarshal(raw, &txt)
		}
		if txt == "" || e.X == nil || e.Y == nil {
			return s, false
		}
		s.text = txt
		s.points = [][2]float64{at(e.X, e.Y)}
		return s, true
	}
	return s, false
}

// parseColor accepts #rgb and #rrggbb. Anything else is black.
func parseColor(c string) [3]int {
	c = strings.TrimPrefix(strings.TrimSpace(c), "#")
	if len(c) == 3 {
		c = string([]byte{c[0], c[0], c[1], c[1], c[2], c[2]})
	}
	if len(c) != 6 {
		return [3]int{}
	}
	v, err := strconv.ParseUint(c, 16, 32)
	if err != nil {
		return [3]int{}
	}
	return [3]int{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}
}

func clampOpacity(o float64) float64 {
	if o < 0.1 {
		return 0.1
	}
	if o > 1 {
		return 1
	}
	return o
}
