package snapshot

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

func newTestBadger(t *testing.T) *BadgerBackend {
	t.Helper()
	cfg := DefaultBadgerConfig(t.TempDir())
	cfg.Now = fixedNow
	cfg.SyncWrites = false
	cfg.Logger = slog.Default()

	b, err := NewBadgerBackend(cfg)
	if err != nil {
		t.Fatalf("NewBadgerBackend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBadgerBackend_SaveLoadDelete(t *testing.T) {
	b := newTestBadger(t)

	if _, err := b.Save("demo", sampleElements(10)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, lr := b.Load("demo")
	if lr.Status != StatusLoaded || len(got) != 10 {
		t.Fatalf("Load = %d elements, %+v", len(got), lr)
	}

	list, err := b.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Board != "demo" || list[0].Size == 0 {
		t.Fatalf("List = %+v", list)
	}

	res, err := b.Save("demo", nil)
	if err != nil || !res.Removed {
		t.Fatalf("Save empty = %+v, %v", res, err)
	}
	if _, lr := b.Load("demo"); lr.Status != StatusMissing {
		t.Fatalf("Status after delete = %s", lr.Status)
	}
}

func TestBadgerBackend_QuarantinesCorruptValue(t *testing.T) {
	b := newTestBadger(t)
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(boardKeyPrefix+"broken"), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, lr := b.Load("broken")
	if lr.Status != StatusQuarantined || len(got) != 0 {
		t.Fatalf("Load = %v, %+v", got, lr)
	}
	if lr.QuarantinePath != "quarantine/broken/2024-03-01T123045.123Z" {
		t.Fatalf("QuarantinePath = %q", lr.QuarantinePath)
	}
}

func TestBadgerBackend_MetricsAndClose(t *testing.T) {
	b := newTestBadger(t)
	reg := prometheus.NewRegistry()
	b.RegisterMetrics(reg)

	if err := b.GC(); err != nil {
		t.Fatalf("GC: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) != 3 {
		t.Fatalf("metric families = %d, want 3", len(families))
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := b.Save("demo", map[string]*domain.Element{"a": {Type: domain.TypeLine}}); err != ErrClosed {
		t.Fatalf("Save after Close = %v, want ErrClosed", err)
	}
}
