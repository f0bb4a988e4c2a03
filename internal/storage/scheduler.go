package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler defaults.
const (
	DefaultDebounce     = 2 * time.Second
	DefaultCeiling      = 60 * time.Second
	DefaultTickInterval = 250 * time.Millisecond
)

// FlushFunc writes one board to durable storage.
type FlushFunc func(ctx context.Context) error

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Debounce is the quiet period after the last mutation before a flush.
	Debounce time.Duration
	// Ceiling bounds the time since the last successful flush of a dirty entry.
	Ceiling time.Duration
	// TickInterval is how often Run checks the deadlines.
	TickInterval time.Duration

	Now    func() time.Time
	Logger *slog.Logger

	// OnFlush, if set, observes every finished flush.
	OnFlush func(key string, elapsed time.Duration, err error)
}

// DefaultSchedulerConfig returns the stock scheduling policy.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Debounce:     DefaultDebounce,
		Ceiling:      DefaultCeiling,
		TickInterval: DefaultTickInterval,
	}
}

type entry struct {
	key   string
	flush FlushFunc

	// Guarded by Scheduler.mu.
	dirty      bool
	debounceAt time.Time
	lastFlush  time.Time

	// guard is held for the duration of a flush.
	guard sync.Mutex
}

// EntryState is a point-in-time view of one entry.
type EntryState struct {
	Dirty      bool
	DebounceAt time.Time
	LastFlush  time.Time
}

// Scheduler flushes registered entries according to the debounce and
// ceiling deadlines.
type Scheduler struct {
	cfg    SchedulerConfig
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler. Zero durations take their defaults.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = DefaultCeiling
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Register adds an entry. Its last flush time starts at now, so a board
// that was just loaded is not considered stale. Registering an existing key
// replaces its flush function.
func (s *Scheduler) Register(key string, fn FlushFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.flush = fn
		return
	}
	s.entries[key] = &entry{
		key:       key,
		flush:     fn,
		lastFlush: s.cfg.Now(),
	}
}

// Touch records a mutation: the entry becomes dirty and its debounce
// deadline moves to now + Debounce. Unknown keys are ignored.
func (s *Scheduler) Touch(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return
	}
	e.dirty = true
	e.debounceAt = s.cfg.Now().Add(s.cfg.Debounce)
}

// State returns the scheduling state of key.
func (s *Scheduler) State(key string) (EntryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return EntryState{}, false
	}
	return EntryState{Dirty: e.dirty, DebounceAt: e.debounceAt, LastFlush: e.lastFlush}, true
}

// due reports whether e must be flushed at now. Caller holds s.mu.
func (s *Scheduler) due(e *entry, now time.Time) bool {
	if !e.dirty {
		return false
	}
	return !now.Before(e.debounceAt) || !now.Before(e.lastFlush.Add(s.cfg.Ceiling))
}

// Tick starts a flush for every due entry whose guard is free and returns
// the number started. A due entry with a flush in flight is skipped and
// stays dirty.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := 0
	for _, e := range s.entries {
		if !s.due(e, now) {
			continue
		}
		if !e.guard.TryLock() {
			continue
		}
		e.dirty = false
		started++

		s.wg.Add(1)
		go func(e *entry, fn FlushFunc) {
			defer s.wg.Done()
			defer e.guard.Unlock()
			s.runFlush(ctx, e, fn)
		}(e, e.flush)
	}
	return started
}

// runFlush executes fn with e's guard held.
func (s *Scheduler) runFlush(ctx context.Context, e *entry, fn FlushFunc) {
	start := s.cfg.Now()
	err := fn(ctx)
	elapsed := s.cfg.Now().Sub(start)

	if err != nil {
		s.logger.Error("board flush failed", "board", e.key, "elapsed", elapsed, "error", err)
	} else {
		s.mu.Lock()
		e.lastFlush = start
		s.mu.Unlock()
	}

	if s.cfg.OnFlush != nil {
		s.cfg.OnFlush(e.key, elapsed, err)
	}
}

// Run checks the deadlines every TickInterval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx, s.cfg.Now())
		case <-ctx.Done():
			return
		}
	}
}

// FlushAll synchronously flushes every dirty entry, waiting for in-flight
// flushes to finish first. It returns the number of entries flushed.
func (s *Scheduler) FlushAll(ctx context.Context) int {
	s.mu.Lock()
	var dirty []*entry
	for _, e := range s.entries {
		if e.dirty {
			dirty = append(dirty, e)
		}
	}
	s.mu.Unlock()

	flushed := 0
	for _, e := range dirty {
		e.guard.Lock()
		s.mu.Lock()
		stillDirty := e.dirty
		e.dirty = false
		fn := e.flush
		s.mu.Unlock()

		if stillDirty {
			s.runFlush(ctx, e, fn)
			flushed++
		}
		e.guard.Unlock()
	}
	return flushed
}

// Wait blocks until every flush started by Tick has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
