package service

import (
	"sort"
	"sync"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
	"github.com/yndnr/boardmesh-go/internal/storage/memory"
)

// Participant is one attached connection.
type Participant interface {
	// ID identifies the connection for the lifetime of the process.
	ID() string

	// Send queues env for delivery. It must not block; an error means the
	// participant cannot keep up and is detached.
	Send(env *protocol.Envelope) error
}

// Board is one resident board.
type Board struct {
	name  string
	store *memory.Store

	// mu serializes mutation and fan-out.
	mu           sync.Mutex
	participants map[string]Participant
}

func newBoard(name string, store *memory.Store) *Board {
	return &Board{
		name:         name,
		store:        store,
		participants: make(map[string]Participant),
	}
}

// Name returns the board name.
func (b *Board) Name() string {
	return b.name
}

// Store returns the element store of the board.
func (b *Board) Store() *memory.Store {
	return b.store
}

// Elements returns a copy of every element, ordered by id.
func (b *Board) Elements() []*domain.Element {
	return b.store.All()
}

// Participants returns the ids of the attached participants, sorted.
func (b *Board) Participants() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.participants))
	for id := range b.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// attach adds p and reports whether it was new. Caller holds b.mu.
func (b *Board) attach(p Participant) bool {
	if _, ok := b.participants[p.ID()]; ok {
		return false
	}
	b.participants[p.ID()] = p
	return true
}

// detach removes the participant with the given id and reports whether it
// was attached. Caller holds b.mu.
func (b *Board) detach(id string) bool {
	if _, ok := b.participants[id]; !ok {
		return false
	}
	delete(b.participants, id)
	return true
}
