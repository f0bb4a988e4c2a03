package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/pkg/cmap"
)

// Store is the element store of one board.
type Store struct {
	elements *cmap.Map[*domain.Element]

	limits   domain.Limits
	now      func() time.Time
	onChange func()

	// mu serializes writers; readers use the sharded map directly.
	mu sync.Mutex
}

// Option configures the Store.
type Option func(*Store)

// WithLimits sets the bounds applied to every stored element.
func WithLimits(lim domain.Limits) Option {
	return func(s *Store) {
		s.limits = lim
	}
}

// WithClock sets the clock used to stamp element acceptance times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithOnChange registers a hook called after every mutation.
func WithOnChange(fn func()) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		elements: cmap.New[*domain.Element](),
		limits:   domain.DefaultLimits(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Set inserts or replaces the element under id. The element is sanitized and
// stamped with the acceptance time; the caller's value is not retained.
func (s *Store) Set(id string, e *domain.Element) {
	stored := e.Clone()
	stored.ID = id
	stored.Time = s.now().UnixMilli()
	domain.Sanitize(stored, s.limits)

	s.mu.Lock()
	s.elements.Set(id, stored)
	s.mu.Unlock()

	s.changed()
}

// AddChild appends child to the children of parentID and re-validates the
// parent. It reports false and leaves the store unchanged when the parent
// does not exist.
func (s *Store) AddChild(parentID string, child *domain.Element) bool {
	s.mu.Lock()
	parent, ok := s.elements.Get(parentID)
	if !ok {
		s.mu.Unlock()
		return false
	}

	next := parent.Clone()
	next.Children = append(next.Children, child.Clone())
	domain.Sanitize(next, s.limits)
	s.elements.Set(parentID, next)
	s.mu.Unlock()

	s.changed()
	return true
}

// Update merges the present fields of partial into the element under id.
// The type and tool fields of partial are ignored, so an update can never
// change the kind of an element. When the element is missing it is created
// from partial only if createIfMissing is set. Update reports whether an
// element was written.
func (s *Store) Update(id string, partial *domain.Element, createIfMissing bool) bool {
	data := partial.Clone()
	data.Type = ""
	data.Tool = ""

	s.mu.Lock()
	current, ok := s.elements.Get(id)
	var next *domain.Element
	switch {
	case ok:
		next = current.Clone()
		next.Merge(data)
	case createIfMissing:
		next = data
		next.ID = id
		next.Time = s.now().UnixMilli()
	default:
		s.mu.Unlock()
		return false
	}
	domain.Sanitize(next, s.limits)
	s.elements.Set(id, next)
	s.mu.Unlock()

	s.changed()
	return true
}

// Delete removes the element under id and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.elements.Pop(id)
	s.mu.Unlock()

	if ok {
		s.changed()
	}
	return ok
}

// Get returns a copy of the element under id.
func (s *Store) Get(id string) (*domain.Element, bool) {
	e, ok := s.elements.Get(id)
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Len returns the number of stored elements.
func (s *Store) Len() int {
	return s.elements.Count()
}

// All returns copies of every element ordered by id.
func (s *Store) All() []*domain.Element {
	return s.AllSince("")
}

// AllSince returns copies of the elements whose id sorts strictly after id,
// ordered by id. An empty id returns every element.
func (s *Store) AllSince(id string) []*domain.Element {
	var out []*domain.Element
	s.elements.Range(func(key string, e *domain.Element) bool {
		if id == "" || key > id {
			out = append(out, e.Clone())
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Snapshot returns a copy of the whole id to element mapping.
func (s *Store) Snapshot() map[string]*domain.Element {
	out := make(map[string]*domain.Element, s.elements.Count())
	s.elements.Range(func(key string, e *domain.Element) bool {
		out[key] = e.Clone()
		return true
	})
	return out
}

// Load replaces the store content with elements, sanitizing each one. It is
// used when a board is read from durable storage and does not fire the
// change hook.
func (s *Store) Load(elements map[string]*domain.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elements.Clear()
	for id, e := range elements {
		if e == nil {
			continue
		}
		stored := e.Clone()
		stored.ID = id
		domain.Sanitize(stored, s.limits)
		s.elements.Set(id, stored)
	}
}

// Evict drops the oldest elements by acceptance time until at most max
// remain, and returns how many were dropped. Ties are broken by id.
// Evicted elements are gone for good.
func (s *Store) Evict(max int) int {
	if max < 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	excess := s.elements.Count() - max
	if excess <= 0 {
		return 0
	}

	type entry struct {
		id   string
		time int64
	}
	entries := make([]entry, 0, s.elements.Count())
	s.elements.Range(func(key string, e *domain.Element) bool {
		entries = append(entries, entry{id: key, time: e.Time})
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].time != entries[j].time {
			return entries[i].time < entries[j].time
		}
		return entries[i].id < entries[j].id
	})

	for _, e := range entries[:excess] {
		s.elements.Delete(e.id)
	}
	return excess
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
