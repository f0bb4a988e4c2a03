// Package cmap provides a sharded concurrent map keyed by string.
//
// Boards are keyed by name and elements by id, so keys hash with
// maphash.String and each shard has its own RWMutex. Readers of one board
// do not block writers of another.
//
// Usage:
//
//	m := cmap.New[*Board]()
//	m.SetIfAbsent("demo", board)
//	b, ok := m.Get("demo")
//
// Range visits shards one at a time; it is not a consistent snapshot.
package cmap
