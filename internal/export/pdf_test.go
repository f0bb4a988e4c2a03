package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

func point(x, y float64) *domain.Element {
	return &domain.Element{Type: domain.TypeChild, X: domain.Num(x), Y: domain.Num(y)}
}

func TestWritePDF_RendersShapes(t *testing.T) {
	elements := []*domain.Element{
		{ID: "l1", Type: domain.TypeLine, Color: "#ff0000", Size: domain.Num(4),
			Children: []*domain.Element{point(10, 10), point(50, 80), point(90, 20)}},
		{ID: "r1", Type: domain.TypeRect, X: domain.Num(100), Y: domain.Num(100), X2: domain.Num(300), Y2: domain.Num(200)},
		{ID: "e1", Type: domain.TypeEllipse, X: domain.Num(0), Y: domain.Num(0), X2: domain.Num(40), Y2: domain.Num(20)},
		{ID: "s1", Type: domain.TypeStraight, X: domain.Num(0), Y: domain.Num(300), X2: domain.Num(400), Y2: domain.Num(300)},
		{ID: "t1", Type: domain.TypeText, X: domain.Num(20), Y: domain.Num(250),
			Extra: map[string]json.RawMessage{"txt": json.RawMessage(`"hello"`)}},
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, elements, DefaultPDFOptions()); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:16])
	}
}

func TestWritePDF_EmptyBoard(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultPDFOptions()
	opts.Title = "empty"
	if err := WritePDF(&buf, nil, opts); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty output")
	}
}

func TestToShape(t *testing.T) {
	tests := []struct {
		name string
		e    *domain.Element
		ok   bool
		n    int
	}{
		{"line", &domain.Element{Type: domain.TypeLine, Children: []*domain.Element{point(1, 1), {Type: domain.TypeChild}}}, true, 1},
		{"line without points", &domain.Element{Type: domain.TypeLine}, false, 0},
		{"rect", &domain.Element{Type: domain.TypeRect, X: domain.Num(0), Y: domain.Num(0), X2: domain.Num(1), Y2: domain.Num(1)}, true, 2},
		{"rect missing corner", &domain.Element{Type: domain.TypeRect, X: domain.Num(0), Y: domain.Num(0)}, false, 0},
		{"text without txt", &domain.Element{Type: domain.TypeText, X: domain.Num(0), Y: domain.Num(0)}, false, 0},
		{"unknown", &domain.Element{Type: "sticker"}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := toShape(tt.e)
			if ok != tt.ok || len(s.points) != tt.n {
				t.Fatalf("toShape = %v, %d points; want %v, %d", ok, len(s.points), tt.ok, tt.n)
			}
		})
	}
}

func TestToShape_AppliesTranslation(t *testing.T) {
	e := &domain.Element{Type: domain.TypeRect,
		X: domain.Num(10), Y: domain.Num(10), X2: domain.Num(20), Y2: domain.Num(20),
		DeltaX: domain.Num(5), DeltaY: domain.Num(-5)}
	s, _ := toShape(e)
	if s.points[0] != [2]float64{15, 5} || s.points[1] != [2]float64{25, 15} {
		t.Fatalf("points = %v", s.points)
	}
}

func TestParseColor(t *testing.T) {
	tests := map[string][3]int{
		"#ff8000": {255, 128, 0},
		"#fff":    {255, 255, 255},
		"red":     {0, 0, 0},
		"":        {0, 0, 0},
	}
	for in, want := range tests {
		if got := parseColor(in); got != want {
			t.Errorf("parseColor(%q) = %v, want %v", in, got, want)
		}
	}
}
