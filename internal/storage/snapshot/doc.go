// Package snapshot provides durable whole-board snapshots.
//
// A snapshot is the JSON serialization of a board's id to element mapping.
// The file backend keeps one file per board:
//
//	board-<url-escaped name>.json
//
// Writes are atomic. The payload goes to a sibling staging file opened with
// O_EXCL, is synced, and is then renamed over the snapshot, so readers never
// see a partial write and two writers never share a staging file. An empty
// board is stored by removing its snapshot.
//
// Loads never fail. A missing snapshot is a new empty board; an unparsable
// one is copied aside as <file>.<timestamp>.bak and the board starts empty.
// Every loaded element is sanitized again.
//
// The badger backend stores the same JSON documents in a key-value store
// for deployments that prefer a single data directory.
package snapshot
