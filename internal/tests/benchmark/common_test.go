package benchmark

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/storage/memory"
)

// ElementCounts defines the board sizes for benchmarking.
var ElementCounts = []int{100, 1000, 5000, 20000}

// SmallElementCounts for quick benchmarks.
var SmallElementCounts = []int{100, 1000, 5000}

// PointsPerLine is the number of children of each generated pencil line.
const PointsPerLine = 16

// newElementID generates a unique element ID.
func newElementID(prefix string) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, _ := ulid.New(ulid.Timestamp(time.Now()), entropy)
	return prefix + strings.ToLower(id.String())
}

// createLine creates a pencil line with PointsPerLine children.
func createLine(i int) *domain.Element {
	e := &domain.Element{
		ID:    newElementID("l"),
		Type:  domain.TypeLine,
		Tool:  "Pencil",
		Color: "#001f3f",
		Size:  domain.Num(4),
	}
	for p := 0; p < PointsPerLine; p++ {
		e.Children = append(e.Children, &domain.Element{
			Type: domain.TypeChild,
			X:    domain.Num(float64(i%1000 + p)),
			Y:    domain.Num(float64(i%700 + p)),
		})
	}
	return e
}

// createRect creates a rectangle.
func createRect(i int) *domain.Element {
	x := float64(i % 1000)
	return &domain.Element{
		ID:    newElementID(domain.RectPrefix),
		Type:  domain.TypeRect,
		Tool:  "Rectangle",
		Color: "#ff4136",
		Size:  domain.Num(2),
		X:     domain.Num(x),
		Y:     domain.Num(x / 2),
		X2:    domain.Num(x + 40),
		Y2:    domain.Num(x/2 + 30),
	}
}

// createElements returns count elements keyed by id, alternating lines
// and rectangles.
func createElements(count int) map[string]*domain.Element {
	elements := make(map[string]*domain.Element, count)
	for i := 0; i < count; i++ {
		var e *domain.Element
		if i%2 == 0 {
			e = createLine(i)
		} else {
			e = createRect(i)
		}
		elements[e.ID] = e
	}
	return elements
}

// prefillStore prefills a store and returns the element IDs.
func prefillStore(store *memory.Store, count int) []string {
	elements := createElements(count)
	store.Load(elements)
	ids := make([]string, 0, len(elements))
	for id := range elements {
		ids = append(ids, id)
	}
	return ids
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithElementCounts runs a benchmark function with various board sizes.
func runWithElementCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("elements_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
