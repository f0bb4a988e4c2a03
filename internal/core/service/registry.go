package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
	"github.com/yndnr/boardmesh-go/internal/storage"
	"github.com/yndnr/boardmesh-go/internal/storage/memory"
	"github.com/yndnr/boardmesh-go/internal/storage/snapshot"
	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
	"github.com/yndnr/boardmesh-go/pkg/cmap"
)

// ErrSendQueueFull is returned by Participant.Send when the participant's
// outbound queue is full.
var ErrSendQueueFull = errors.New("service: participant send queue full")

// Drop reasons reported to the metrics registry.
const (
	dropRateLimited       = "rate_limited"
	dropBlockedTool       = "blocked_tool"
	dropProtocolViolation = "protocol_violation"
	dropUnknownType       = "unknown_type"
	dropMissingID         = "missing_id"
)

// Config configures a Registry.
type Config struct {
	Limits domain.Limits
	// MaxItemCount bounds the elements kept per board; the oldest are
	// evicted before each flush.
	MaxItemCount int

	// EmitCount messages per EmitPeriod are admitted per participant.
	EmitCount  int
	EmitPeriod time.Duration

	BlockedTools []string

	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *metric.Registry
}

// DefaultConfig returns the stock registry configuration.
func DefaultConfig() Config {
	return Config{
		Limits:       domain.DefaultLimits(),
		MaxItemCount: domain.DefaultMaxItemCount,
		EmitCount:    192,
		EmitPeriod:   4096 * time.Millisecond,
	}
}

// BoardStats describes one resident board.
type BoardStats struct {
	Name         string    `json:"name"`
	Elements     int       `json:"elements"`
	Participants int       `json:"participants"`
	Dirty        bool      `json:"dirty"`
	LastFlush    time.Time `json:"last_flush"`
}

// Registry maps board names to resident boards.
type Registry struct {
	cfg       Config
	backend   snapshot.Backend
	scheduler *storage.Scheduler
	logger    *slog.Logger
	metrics   *metric.Registry

	boards   *cmap.Map[*Board]
	loads    singleflight.Group
	limiters *RateLimiterRegistry
	blocked  atomic.Pointer[map[string]struct{}]
}

// NewRegistry creates a registry persisting boards through backend on the
// schedule of scheduler.
func NewRegistry(backend snapshot.Backend, scheduler *storage.Scheduler, cfg Config) *Registry {
	if cfg.Limits == (domain.Limits{}) {
		cfg.Limits = domain.DefaultLimits()
	}
	if cfg.MaxItemCount <= 0 {
		cfg.MaxItemCount = domain.DefaultMaxItemCount
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = metric.NewRegistry()
	}

	r := &Registry{
		cfg:       cfg,
		backend:   backend,
		scheduler: scheduler,
		logger:    logger,
		metrics:   metrics,
		boards:    cmap.New[*Board](),
		limiters:  NewRateLimiterRegistry(cfg.EmitCount, cfg.EmitPeriod),
	}
	r.SetBlockedTools(cfg.BlockedTools)
	return r
}

// Board returns the resident board name, loading it from the backend on
// first use. Concurrent first requests share one load. A board without a
// snapshot starts empty.
func (r *Registry) Board(ctx context.Context, name string) (*Board, error) {
	return r.resolve(ctx, name, true)
}

// Lookup is Board for read-only callers: a board that is neither resident
// nor persisted yields ErrBoardNotFound and is not created.
func (r *Registry) Lookup(ctx context.Context, name string) (*Board, error) {
	return r.resolve(ctx, name, false)
}

func (r *Registry) resolve(ctx context.Context, name string, create bool) (*Board, error) {
	if err := domain.ValidateBoardName(name); err != nil {
		return nil, err
	}
	if b, ok := r.boards.Get(name); ok {
		return b, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := name
	if !create {
		key = "lookup/" + name
	}
	v, err, _ := r.loads.Do(key, func() (any, error) {
		if b, ok := r.boards.Get(name); ok {
			return b, nil
		}
		elements, res := r.backend.Load(name)
		if !create && res.Status == snapshot.StatusMissing {
			return nil, domain.ErrBoardNotFound.WithDetails(name)
		}
		snapshot.LogLoad(r.logger, name, len(elements), res)
		r.metrics.SnapshotLoads.WithLabelValues(string(res.Status)).Inc()
		return r.install(name, elements), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Board), nil
}

// install makes a loaded board resident and schedules its flushes.
func (r *Registry) install(name string, elements map[string]*domain.Element) *Board {
	store := memory.New(
		memory.WithLimits(r.cfg.Limits),
		memory.WithClock(r.cfg.Now),
		memory.WithOnChange(func() { r.scheduler.Touch(name) }),
	)
	store.Load(elements)

	b := newBoard(name, store)
	if !r.boards.SetIfAbsent(name, b) {
		existing, _ := r.boards.Get(name)
		return existing
	}
	r.scheduler.Register(name, func(ctx context.Context) error {
		return r.flush(ctx, b)
	})
	r.metrics.BoardsLoaded.Inc()
	return b
}

// flush bounds the board and writes its snapshot.
func (r *Registry) flush(_ context.Context, b *Board) error {
	start := time.Now()
	defer func() {
		r.metrics.FlushDuration.Observe(time.Since(start).Seconds())
	}()

	if n := b.store.Evict(r.cfg.MaxItemCount); n > 0 {
		r.metrics.ElementsEvicted.Add(float64(n))
		r.logger.Warn("board over capacity, oldest elements evicted",
			"board", b.name,
			"evicted", n,
			"max_item_count", r.cfg.MaxItemCount)
	}

	res, err := r.backend.Save(b.name, b.store.Snapshot())
	if err != nil {
		r.metrics.Flushes.WithLabelValues("error").Inc()
		return fmt.Errorf("service: save board %q: %w", b.name, err)
	}
	r.metrics.Flushes.WithLabelValues("ok").Inc()
	r.logger.Debug("board saved",
		"board", b.name,
		"path", res.Path,
		"bytes", res.Bytes,
		"removed", res.Removed)
	return nil
}

// Join attaches p to the board and sends it the whole board as one replay
// message. Every join is a full replay, including rejoins after a
// reconnect.
func (r *Registry) Join(ctx context.Context, name string, p Participant) error {
	b, err := r.Board(ctx, name)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attach(p) {
		r.metrics.Participants.Inc()
	}
	replay := protocol.NewReplay(name, b.store.All())
	if err := p.Send(replay); err != nil {
		r.drop(b, p.ID(), err)
		return err
	}
	r.logger.Debug("participant joined", "board", name, "participant_id", p.ID())
	return nil
}

// Leave detaches p from the board. Board state is untouched.
func (r *Registry) Leave(name string, p Participant) {
	b, ok := r.boards.Get(name)
	if !ok {
		return
	}
	b.mu.Lock()
	if b.detach(p.ID()) {
		r.metrics.Participants.Dec()
	}
	b.mu.Unlock()
}

// LeaveAll detaches p from every board, as on disconnect.
func (r *Registry) LeaveAll(p Participant) {
	r.boards.Range(func(_ string, b *Board) bool {
		b.mu.Lock()
		if b.detach(p.ID()) {
			r.metrics.Participants.Dec()
		}
		b.mu.Unlock()
		return true
	})
	r.limiters.Delete(p.ID())
}

// drop detaches a participant that failed a send. Caller holds b.mu.
func (r *Registry) drop(b *Board, id string, err error) {
	if b.detach(id) {
		r.metrics.Participants.Dec()
	}
	r.logger.Warn("participant detached after failed send",
		"board", b.name,
		"participant_id", id,
		"error", err)
}

// Broadcast applies msg to the board and fans it out to every attached
// participant except sender. A sender that has not joined is attached
// without a replay. sender may be nil for server-originated messages.
//
// Rejected messages are neither applied nor fanned out. A message naming
// a missing element is still fanned out.
func (r *Registry) Broadcast(ctx context.Context, name string, sender Participant, msg *domain.Element) error {
	if msg == nil {
		return domain.ErrInvalidMessage.WithDetails("empty message")
	}
	if sender != nil && !r.limiters.AllowAt(sender.ID(), r.cfg.Now()) {
		r.metrics.MessagesDropped.WithLabelValues(dropRateLimited).Inc()
		r.logger.Warn("message dropped, participant over emit rate",
			"board", name,
			"participant_id", sender.ID())
		return domain.ErrRateLimited
	}
	if tool := r.blockedTool(msg); tool != "" {
		r.metrics.MessagesDropped.WithLabelValues(dropBlockedTool).Inc()
		r.logger.Warn("message from blocked tool dropped", "board", name, "tool", tool)
		return domain.ErrBlockedTool.WithDetails(tool)
	}
	if msg.Tool == "" && !msg.HasChildren() {
		r.metrics.MessagesDropped.WithLabelValues(dropProtocolViolation).Inc()
		r.logger.Error("protocol violation: message has neither tool nor children",
			"board", name,
			"element_id", msg.ID)
		return domain.ErrInvalidMessage.WithDetails("message has neither tool nor children")
	}

	b, err := r.Board(ctx, name)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if sender != nil && b.attach(sender) {
		r.metrics.Participants.Inc()
	}

	if msg.Tool != "" {
		err = r.apply(b, msg)
	} else {
		r.applyBatch(b, msg.Children)
	}
	if err != nil {
		return err
	}

	env := protocol.NewBroadcast(name, msg)
	for id, p := range b.participants {
		if sender != nil && id == sender.ID() {
			continue
		}
		if err := p.Send(env); err != nil {
			r.drop(b, id, err)
		}
	}
	return nil
}

// applyBatch applies each child in order. A child that cannot be applied
// is skipped. Caller holds b.mu.
func (r *Registry) applyBatch(b *Board, children []*domain.Element) {
	for _, child := range children {
		if child == nil {
			continue
		}
		if child.Tool == "" && child.Type == "" {
			if child.HasChildren() {
				r.applyBatch(b, child.Children)
			}
			continue
		}
		if err := r.apply(b, child); err != nil {
			r.logger.Warn("batch element skipped", "board", b.name, "element_id", child.ID, "error", err)
		}
	}
}

// apply routes one message to the store by its type. Caller holds b.mu.
func (r *Registry) apply(b *Board, msg *domain.Element) error {
	if err := domain.CheckType(msg); err != nil {
		r.metrics.MessagesDropped.WithLabelValues(dropUnknownType).Inc()
		return err
	}

	switch msg.Type {
	case domain.TypeDelete:
		if !b.store.Delete(msg.ID) {
			r.logger.Debug("delete of missing element", "board", b.name,
				"error", domain.ErrElementNotFound.WithDetails(msg.ID))
		}
	case domain.TypeUpdate:
		if !b.store.Update(msg.ID, msg, false) {
			r.logger.Debug("update of missing element", "board", b.name,
				"error", domain.ErrElementNotFound.WithDetails(msg.ID))
		}
	case domain.TypeChild:
		if !b.store.AddChild(msg.Parent, msg) {
			r.logger.Debug("child of missing parent", "board", b.name,
				"error", domain.ErrParentNotFound.WithDetails(msg.Parent))
		}
	case domain.TypeEndLine:
	default:
		if msg.ID == "" {
			r.metrics.MessagesDropped.WithLabelValues(dropMissingID).Inc()
			return domain.ErrMissingID.WithDetails(msg.Type)
		}
		b.store.Set(msg.ID, msg)
	}
	return nil
}

// SetBlockedTools replaces the tool block list. Safe to call at any time.
func (r *Registry) SetBlockedTools(tools []string) {
	set := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	r.blocked.Store(&set)
}

// BlockedTools returns the current block list, sorted.
func (r *Registry) BlockedTools() []string {
	set := *r.blocked.Load()
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// blockedTool returns the first blocked tool named by msg or its batch.
func (r *Registry) blockedTool(msg *domain.Element) string {
	set := *r.blocked.Load()
	if len(set) == 0 {
		return ""
	}
	var find func(e *domain.Element) string
	find = func(e *domain.Element) string {
		if e == nil {
			return ""
		}
		if _, ok := set[e.Tool]; ok {
			return e.Tool
		}
		if e.Tool == "" {
			for _, c := range e.Children {
				if t := find(c); t != "" {
					return t
				}
			}
		}
		return ""
	}
	return find(msg)
}

// Stats describes every resident board, ordered by name.
func (r *Registry) Stats() []BoardStats {
	var out []BoardStats
	r.boards.Range(func(_ string, b *Board) bool {
		out = append(out, r.stats(b))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BoardStats describes one board, loading it if it has a snapshot.
func (r *Registry) BoardStats(ctx context.Context, name string) (BoardStats, error) {
	b, err := r.Lookup(ctx, name)
	if err != nil {
		return BoardStats{}, err
	}
	return r.stats(b), nil
}

func (r *Registry) stats(b *Board) BoardStats {
	b.mu.Lock()
	participants := len(b.participants)
	b.mu.Unlock()

	s := BoardStats{
		Name:         b.name,
		Elements:     b.store.Len(),
		Participants: participants,
	}
	if st, ok := r.scheduler.State(b.name); ok {
		s.Dirty = st.Dirty
		s.LastFlush = st.LastFlush
	}
	return s
}

// MetricSource exposes per-board gauges to the metrics collector.
func (r *Registry) MetricSource() metric.BoardSource {
	return metric.BoardSourceFunc(func() []metric.BoardStat {
		stats := r.Stats()
		out := make([]metric.BoardStat, len(stats))
		for i, s := range stats {
			out[i] = metric.BoardStat{Name: s.Name, Elements: s.Elements, Participants: s.Participants}
		}
		return out
	})
}

// Persisted lists the snapshots known to the backend.
func (r *Registry) Persisted() ([]snapshot.Info, error) {
	return r.backend.List()
}

// Close flushes every dirty board and waits for in-flight flushes. It
// returns the number of boards written.
func (r *Registry) Close(ctx context.Context) int {
	n := r.scheduler.FlushAll(ctx)
	r.scheduler.Wait()
	r.logger.Info("boards flushed", "boards", n)
	return n
}
