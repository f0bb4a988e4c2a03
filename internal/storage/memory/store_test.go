package memory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestStore(opts ...Option) (*Store, *atomic.Int64) {
	var changes atomic.Int64
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	opts = append([]Option{
		WithClock(clock.Now),
		WithOnChange(func() { changes.Add(1) }),
	}, opts...)
	return New(opts...), &changes
}

func TestStore_SetStampsAndSanitizes(t *testing.T) {
	store, changes := newTestStore()

	in := &domain.Element{Type: domain.TypeRect, Size: domain.Num(900), X: domain.Num(-4)}
	store.Set("r1", in)

	got, ok := store.Get("r1")
	if !ok {
		t.Fatal("Get: element missing")
	}
	if got.ID != "r1" || got.Time == 0 {
		t.Fatalf("id/time not stamped: %+v", got)
	}
	if got.Size.Value != domain.MaxSize || got.X.Value != 0 || got.Y == nil {
		t.Fatalf("element not sanitized: %+v", got)
	}
	if in.Time != 0 || in.Size.Value != 900 {
		t.Fatal("Set modified the caller's element")
	}
	if changes.Load() != 1 {
		t.Fatalf("changes = %d, want 1", changes.Load())
	}
}

func TestStore_GetReturnsClone(t *testing.T) {
	store, _ := newTestStore()
	store.Set("l1", &domain.Element{Type: domain.TypeLine, Size: domain.Num(3)})

	a, _ := store.Get("l1")
	a.Size.Value = 40

	b, _ := store.Get("l1")
	if b.Size.Value != 3 {
		t.Fatalf("stored element mutated through Get: size = %v", b.Size.Value)
	}
}

func TestStore_AddChild(t *testing.T) {
	store, changes := newTestStore(WithLimits(domain.Limits{MaxBoardSize: 100, MaxChildren: 2}))
	store.Set("l1", &domain.Element{Type: domain.TypeLine})

	for i := 0; i < 3; i++ {
		ok := store.AddChild("l1", &domain.Element{Type: domain.TypeChild, Parent: "l1", X: domain.Num(float64(i)), Y: domain.Num(500)})
		if !ok {
			t.Fatalf("AddChild #%d returned false", i)
		}
	}

	got, _ := store.Get("l1")
	if len(got.Children) != 2 {
		t.Fatalf("children = %d, want 2 (capped)", len(got.Children))
	}
	if got.Children[0].X.Value != 0 || got.Children[1].X.Value != 1 {
		t.Fatalf("children order not preserved: %+v", got.Children)
	}
	if got.Children[1].Y.Value != 100 {
		t.Fatalf("child not re-validated: y = %v", got.Children[1].Y.Value)
	}
	if changes.Load() != 4 {
		t.Fatalf("changes = %d, want 4", changes.Load())
	}
}

func TestStore_AddChildMissingParent(t *testing.T) {
	store, changes := newTestStore()
	store.Set("l1", &domain.Element{Type: domain.TypeLine})
	before := store.Snapshot()
	beforeChanges := changes.Load()

	if store.AddChild("nope", &domain.Element{Type: domain.TypeChild}) {
		t.Fatal("AddChild on missing parent should return false")
	}

	after := store.Snapshot()
	if len(after) != len(before) || len(after["l1"].Children) != 0 {
		t.Fatalf("store changed: %+v", after)
	}
	if changes.Load() != beforeChanges {
		t.Fatal("change hook fired for a failed AddChild")
	}
}

func TestStore_UpdateStripsKind(t *testing.T) {
	store, _ := newTestStore()
	store.Set("r1", &domain.Element{Type: domain.TypeRect, Tool: "Rectangle", X: domain.Num(1), Y: domain.Num(1)})

	ok := store.Update("r1", &domain.Element{Type: domain.TypeLine, Tool: "Pencil", X2: domain.Num(10), Y2: domain.Num(12.345)}, false)
	if !ok {
		t.Fatal("Update returned false for existing element")
	}

	got, _ := store.Get("r1")
	if got.Type != domain.TypeRect || got.Tool != "Rectangle" {
		t.Fatalf("update changed kind: type=%q tool=%q", got.Type, got.Tool)
	}
	if got.X2.Value != 10 || got.Y2.Value != 12.3 {
		t.Fatalf("update not merged or not sanitized: %+v", got)
	}
}

func TestStore_UpdateMissing(t *testing.T) {
	store, _ := newTestStore()

	if store.Update("h1", &domain.Element{DeltaX: domain.Num(5)}, false) {
		t.Fatal("Update without create should not create")
	}
	if store.Len() != 0 {
		t.Fatalf("Len = %d, want 0", store.Len())
	}

	if !store.Update("h1", &domain.Element{Type: domain.TypeUpdate, DeltaX: domain.Num(5)}, true) {
		t.Fatal("Update with create should create")
	}
	got, ok := store.Get("h1")
	if !ok || got.Type != "" || got.DeltaX.Value != 5 || got.Time == 0 {
		t.Fatalf("created element = %+v", got)
	}
}

func TestStore_DeleteMissingLeavesStoreClean(t *testing.T) {
	store, changes := newTestStore()
	store.Set("r1", &domain.Element{Type: domain.TypeRect})
	before := changes.Load()

	if store.Delete("missing") {
		t.Fatal("Delete missing returned true")
	}
	if n := changes.Load(); n != before {
		t.Fatalf("change hook ran %d times for a missing id", n-before)
	}

	if !store.Delete("r1") {
		t.Fatal("Delete existing returned false")
	}
	if n := changes.Load(); n != before+1 {
		t.Fatalf("change hook ran %d times, want 1", n-before)
	}
}

func TestStore_DeleteAndAllSince(t *testing.T) {
	store, _ := newTestStore()
	for _, id := range []string{"c", "a", "e", "b", "d"} {
		store.Set(id, &domain.Element{Type: domain.TypeRect})
	}

	if !store.Delete("e") {
		t.Fatal("Delete existing returned false")
	}
	if store.Delete("e") {
		t.Fatal("Delete missing returned true")
	}

	ids := func(list []*domain.Element) string {
		s := ""
		for _, e := range list {
			s += e.ID
		}
		return s
	}
	if got := ids(store.All()); got != "abcd" {
		t.Fatalf("All = %q, want abcd", got)
	}
	if got := ids(store.AllSince("b")); got != "cd" {
		t.Fatalf("AllSince(b) = %q, want cd", got)
	}
	if got := ids(store.AllSince("z")); got != "" {
		t.Fatalf("AllSince(z) = %q, want empty", got)
	}
}

func TestStore_EvictOldestByTime(t *testing.T) {
	store, _ := newTestStore()
	// Ids deliberately sort opposite to insertion time.
	for i := 0; i < 10; i++ {
		store.Set(fmt.Sprintf("id-%02d", 9-i), &domain.Element{Type: domain.TypeRect})
	}

	evicted := store.Evict(7)
	if evicted != 3 {
		t.Fatalf("Evict = %d, want 3", evicted)
	}
	if store.Len() != 7 {
		t.Fatalf("Len = %d, want 7", store.Len())
	}
	for _, gone := range []string{"id-09", "id-08", "id-07"} {
		if _, ok := store.Get(gone); ok {
			t.Errorf("%s should have been evicted", gone)
		}
	}
	if store.Evict(7) != 0 {
		t.Fatal("second Evict should be a no-op")
	}
}

func TestStore_LoadSanitizesWithoutHook(t *testing.T) {
	store, changes := newTestStore()
	store.Load(map[string]*domain.Element{
		"l1": {Type: domain.TypeLine, Size: domain.Num(70)},
		"l2": nil,
	})

	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
	got, _ := store.Get("l1")
	if got.ID != "l1" || got.Size.Value != domain.MaxSize {
		t.Fatalf("loaded element = %+v", got)
	}
	if changes.Load() != 0 {
		t.Fatal("Load should not fire the change hook")
	}
}

func TestStore_ConcurrentAddChild(t *testing.T) {
	store, _ := newTestStore(WithLimits(domain.Limits{MaxBoardSize: 1000, MaxChildren: 1000}))
	store.Set("l1", &domain.Element{Type: domain.TypeLine})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				store.AddChild("l1", &domain.Element{Type: domain.TypeChild, X: domain.Num(1)})
				_, _ = store.Get("l1")
			}
		}()
	}
	wg.Wait()

	got, _ := store.Get("l1")
	if len(got.Children) != 400 {
		t.Fatalf("children = %d, want 400", len(got.Children))
	}
}
