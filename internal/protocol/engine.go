package protocol

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// Engine defaults.
const (
	DefaultBatchSize = 1024
	DefaultMoverTool = "Hand"
)

// YieldFunc is called between batch chunks. A non-nil error aborts the
// rest of the batch.
type YieldFunc func(ctx context.Context) error

// DefaultYield gives other goroutines a chance to run and stops on
// cancellation.
func DefaultYield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	BatchSize int
	Yield     YieldFunc
	// MoverTool receives a synthesized update for every message of another
	// tool that carries a move delta.
	MoverTool    string
	BlockedTools []string
	Logger       *slog.Logger
}

// DefaultEngineConfig returns the stock engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BatchSize: DefaultBatchSize,
		Yield:     DefaultYield,
		MoverTool: DefaultMoverTool,
	}
}

// Engine dispatches incoming messages to registered tools.
type Engine struct {
	cfg    EngineConfig
	logger *slog.Logger

	mu      sync.Mutex
	tools   map[string]Tool
	pending map[string][]*domain.Element
	blocked map[string]struct{}
}

// NewEngine creates an engine with no registered tools.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Yield == nil {
		cfg.Yield = DefaultYield
	}
	if cfg.MoverTool == "" {
		cfg.MoverTool = DefaultMoverTool
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:     cfg,
		logger:  logger,
		tools:   make(map[string]Tool),
		pending: make(map[string][]*domain.Element),
	}
	e.SetBlockedTools(cfg.BlockedTools)
	return e
}

// SetBlockedTools replaces the tool block list.
func (e *Engine) SetBlockedTools(tools []string) {
	set := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		set[t] = struct{}{}
	}
	e.mu.Lock()
	e.blocked = set
	e.mu.Unlock()
}

// Register adds t and drains the messages that arrived for it before it
// was registered, in arrival order. Registering a blocked tool is a no-op.
// Registering a name twice replaces the earlier tool.
//
// t is published only once its queue is empty. Messages handled while the
// drain runs join the queue behind the ones already waiting.
func (e *Engine) Register(t Tool) {
	name := t.Name()

	e.mu.Lock()
	if _, blocked := e.blocked[name]; blocked {
		e.mu.Unlock()
		e.logger.Warn("blocked tool not registered", "tool", name)
		return
	}
	if _, exists := e.tools[name]; exists {
		e.logger.Info("tool already registered, replacing it", "tool", name)
	}

	for {
		queue := e.pending[name]
		delete(e.pending, name)
		if len(queue) == 0 {
			e.tools[name] = t
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()

		e.logger.Debug("drawing pending messages", "tool", name, "messages", len(queue))
		for _, msg := range queue {
			e.draw(t, msg)
		}
		e.mu.Lock()
	}
}

// Tool returns the registered tool with the given name.
func (e *Engine) Tool(name string) (Tool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tools[name]
	return t, ok
}

// Pending returns the number of messages waiting for tool.
func (e *Engine) Pending(tool string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending[tool])
}

// Handle resolves msg. A message naming a tool is dispatched to it; its
// children, if any, are then handled as a batch. A message with neither a
// tool nor children is dropped with ErrInvalidMessage.
func (e *Engine) Handle(ctx context.Context, msg *domain.Element) error {
	if msg == nil || (msg.Tool == "" && !msg.HasChildren()) {
		e.logger.Error("protocol violation: message has neither tool nor children")
		return domain.ErrInvalidMessage.WithDetails("message has neither tool nor children")
	}
	if msg.Tool != "" {
		e.forTool(msg)
	}
	if msg.HasChildren() {
		return e.batch(ctx, msg.Children)
	}
	return nil
}

// batch handles children in chunks of BatchSize, yielding between chunks.
func (e *Engine) batch(ctx context.Context, children []*domain.Element) error {
	for start := 0; start < len(children); start += e.cfg.BatchSize {
		if start > 0 {
			if err := e.cfg.Yield(ctx); err != nil {
				return err
			}
		}
		end := min(start+e.cfg.BatchSize, len(children))
		for _, child := range children[start:end] {
			if child == nil {
				continue
			}
			// A malformed child is logged and skipped; the batch continues.
			if err := e.Handle(ctx, child); err != nil && ctx.Err() != nil {
				return err
			}
		}
	}
	return nil
}

// forTool dispatches msg to its tool, queueing it while the tool is not
// registered.
func (e *Engine) forTool(msg *domain.Element) {
	name := msg.Tool

	e.mu.Lock()
	if _, blocked := e.blocked[name]; blocked {
		e.mu.Unlock()
		e.logger.Debug("message for blocked tool dropped", "tool", name, "element_id", msg.ID)
		return
	}
	t, ok := e.tools[name]
	if !ok {
		e.pending[name] = append(e.pending[name], msg)
	}
	e.mu.Unlock()

	if ok {
		e.draw(t, msg)
	}

	if name != e.cfg.MoverTool && msg.DeltaX != nil && msg.DeltaY != nil {
		e.forTool(&domain.Element{
			ID:     msg.ID,
			Type:   domain.TypeUpdate,
			Tool:   e.cfg.MoverTool,
			DeltaX: domain.Num(msg.DeltaX.Float(0)),
			DeltaY: domain.Num(msg.DeltaY.Float(0)),
		})
	}
}

func (e *Engine) draw(t Tool, msg *domain.Element) {
	if err := t.Draw(msg, false); err != nil {
		e.logger.Warn("tool failed to draw message",
			"tool", t.Name(),
			"element_id", msg.ID,
			"type", msg.Type,
			"error", err)
	}
}
