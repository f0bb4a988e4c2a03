package benchmark

import (
	"testing"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/storage/snapshot"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

func newFileBackend(b *testing.B) *snapshot.Manager {
	b.Helper()
	mgr, err := snapshot.NewManager(snapshot.Config{Dir: b.TempDir(), Logger: logger.Discard()})
	if err != nil {
		b.Fatalf("Failed to create snapshot manager: %v", err)
	}
	return mgr
}

func newBadgerBackend(b *testing.B) *snapshot.BadgerBackend {
	b.Helper()
	cfg := snapshot.DefaultBadgerConfig(b.TempDir())
	cfg.Logger = logger.Discard()
	cfg.SyncWrites = false
	backend, err := snapshot.NewBadgerBackend(cfg)
	if err != nil {
		b.Fatalf("Failed to open badger: %v", err)
	}
	b.Cleanup(func() { backend.Close() })
	return backend
}

// BenchmarkSnapshotSave benchmarks writing a board to the file backend.
func BenchmarkSnapshotSave(b *testing.B) {
	runWithElementCounts(b, SmallElementCounts, func(b *testing.B, count int) {
		mgr := newFileBackend(b)
		elements := createElements(count)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := mgr.Save("bench", elements); err != nil {
				b.Fatalf("Save failed: %v", err)
			}
		}
		b.StopTimer()
		reportMemory(b, "mem")
	})
}

// BenchmarkSnapshotLoad benchmarks reading and revalidating a board from
// the file backend.
func BenchmarkSnapshotLoad(b *testing.B) {
	runWithElementCounts(b, SmallElementCounts, func(b *testing.B, count int) {
		mgr := newFileBackend(b)
		if _, err := mgr.Save("bench", createElements(count)); err != nil {
			b.Fatalf("Save failed: %v", err)
		}

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			elements, _ := mgr.Load("bench")
			if len(elements) != count {
				b.Fatalf("loaded %d elements, want %d", len(elements), count)
			}
		}
	})
}

// BenchmarkBadgerSave benchmarks writing a board to the badger backend.
func BenchmarkBadgerSave(b *testing.B) {
	runWithElementCounts(b, SmallElementCounts, func(b *testing.B, count int) {
		backend := newBadgerBackend(b)
		elements := createElements(count)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := backend.Save("bench", elements); err != nil {
				b.Fatalf("Save failed: %v", err)
			}
		}
	})
}

// BenchmarkBadgerLoad benchmarks reading a board from the badger backend.
func BenchmarkBadgerLoad(b *testing.B) {
	runWithElementCounts(b, SmallElementCounts, func(b *testing.B, count int) {
		backend := newBadgerBackend(b)
		if _, err := backend.Save("bench", createElements(count)); err != nil {
			b.Fatalf("Save failed: %v", err)
		}

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			elements, _ := backend.Load("bench")
			if len(elements) != count {
				b.Fatalf("loaded %d elements, want %d", len(elements), count)
			}
		}
	})
}

// BenchmarkDecode benchmarks parsing and sanitizing snapshot bytes.
func BenchmarkDecode(b *testing.B) {
	runWithElementCounts(b, ElementCounts, func(b *testing.B, count int) {
		data, err := snapshot.Encode(createElements(count))
		if err != nil {
			b.Fatalf("Encode failed: %v", err)
		}
		lim := domain.DefaultLimits()

		b.SetBytes(int64(len(data)))
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, _, err := snapshot.Decode(data, lim); err != nil {
				b.Fatalf("Decode failed: %v", err)
			}
		}
	})
}
