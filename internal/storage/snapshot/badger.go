package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

const (
	boardKeyPrefix      = "board/"
	quarantineKeyPrefix = "quarantine/"
)

// BadgerConfig configures the badger snapshot backend.
type BadgerConfig struct {
	Dir    string
	Limits domain.Limits
	Now    func() time.Time
	Logger *slog.Logger

	// GCInterval is the interval between value log GC runs.
	GCInterval time.Duration
	// GCThreshold is the discard ratio that triggers a value log rewrite.
	GCThreshold float64
	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// DefaultBadgerConfig returns the default badger backend configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		Limits:      domain.DefaultLimits(),
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		SyncWrites:  true,
	}
}

// BadgerBackend stores board snapshots as JSON values in badger.
type BadgerBackend struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime atomic.Int64

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	closeOnce sync.Once
	closed    atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

var _ Backend = (*BadgerBackend)(nil)

// NewBadgerBackend opens the badger database in cfg.Dir.
func NewBadgerBackend(cfg BadgerConfig) (*BadgerBackend, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: badger dir is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Limits == (domain.Limits{}) {
		cfg.Limits = domain.DefaultLimits()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open badger: %w", err)
	}

	b := &BadgerBackend{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go b.gcLoop()

	logger.Info("badger snapshot backend started", "dir", cfg.Dir, "gc_interval", cfg.GCInterval)
	return b, nil
}

// Save stores the element mapping of board under one key.
func (b *BadgerBackend) Save(board string, elements map[string]*domain.Element) (SaveResult, error) {
	if b.closed.Load() {
		return SaveResult{}, ErrClosed
	}
	key := []byte(boardKeyPrefix + board)

	if len(elements) == 0 {
		err := b.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return SaveResult{}, fmt.Errorf("snapshot: delete empty board: %w", err)
		}
		return SaveResult{Path: string(key), Removed: true}, nil
	}

	data, err := Encode(elements)
	if err != nil {
		return SaveResult{}, err
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("snapshot: badger set: %w", err)
	}
	return SaveResult{Path: string(key), Bytes: len(data)}, nil
}

// Load reads the snapshot of board. A corrupt value is copied under the
// quarantine prefix and the board starts empty.
func (b *BadgerBackend) Load(board string) (map[string]*domain.Element, LoadResult) {
	key := []byte(boardKeyPrefix + board)
	res := LoadResult{Path: string(key)}

	if b.closed.Load() {
		res.Status = StatusUnreadable
		res.Err = ErrClosed
		return map[string]*domain.Element{}, res
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			res.Status = StatusMissing
		} else {
			res.Status = StatusUnreadable
			res.Err = err
		}
		return map[string]*domain.Element{}, res
	}

	elements, dropped, err := Decode(data, b.cfg.Limits)
	if err != nil {
		res.Status = StatusQuarantined
		res.Err = err
		qkey := quarantineKeyPrefix + board + "/" + timestampSuffix(b.cfg.Now())
		werr := b.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(qkey), data)
		})
		if werr != nil {
			res.Err = errors.Join(err, fmt.Errorf("snapshot: quarantine copy: %w", werr))
		} else {
			res.QuarantinePath = qkey
		}
		return map[string]*domain.Element{}, res
	}

	res.Status = StatusLoaded
	res.Dropped = dropped
	return elements, res
}

// List describes the stored boards, ordered by name. ModifiedAt is left
// zero since badger keeps no per-key modification time.
func (b *BadgerBackend) List() ([]Info, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	var out []Info
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(boardKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			out = append(out, Info{
				Board: strings.TrimPrefix(string(item.Key()), boardKeyPrefix),
				Size:  item.ValueSize(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Board < out[j].Board })
	return out, nil
}

// GC runs value log garbage collection until nothing is left to rewrite.
func (b *BadgerBackend) GC() error {
	start := time.Now()
	runs := 0
	for {
		err := b.db.RunValueLogGC(b.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("snapshot: badger gc: %w", err)
		}
		runs++
	}
	b.lastGCTime.Store(time.Now().UnixMilli())
	b.logger.Debug("badger gc completed", "rewrites", runs, "elapsed", time.Since(start))
	return nil
}

// RegisterMetrics registers storage size gauges with registry.
func (b *BadgerBackend) RegisterMetrics(registry prometheus.Registerer) *BadgerBackend {
	b.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "boardmesh",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	b.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "boardmesh",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	b.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "boardmesh",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last value log GC",
	})
	registry.MustRegister(b.metricsLSMSize, b.metricsValueLogSize, b.metricsLastGCTime)
	b.updateMetrics()
	return b
}

func (b *BadgerBackend) updateMetrics() {
	if b.metricsLSMSize == nil {
		return
	}
	lsm, vlog := b.db.Size()
	b.metricsLSMSize.Set(float64(lsm))
	b.metricsValueLogSize.Set(float64(vlog))
	if last := b.lastGCTime.Load(); last > 0 {
		b.metricsLastGCTime.Set(float64(last) / 1000)
	}
}

func (b *BadgerBackend) gcLoop() {
	defer close(b.doneCh)

	gcTicker := time.NewTicker(b.cfg.GCInterval)
	defer gcTicker.Stop()
	metricsTicker := time.NewTicker(15 * time.Second)
	defer metricsTicker.Stop()

	for {
		select {
		case <-gcTicker.C:
			if err := b.GC(); err != nil {
				b.logger.Error("badger gc failed", "error", err)
			}
		case <-metricsTicker.C:
			b.updateMetrics()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops background work and closes the database.
func (b *BadgerBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.stopCh)
		<-b.doneCh
		if cerr := b.db.Close(); cerr != nil {
			err = fmt.Errorf("snapshot: close badger: %w", cerr)
		}
	})
	return err
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
