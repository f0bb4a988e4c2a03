// Package memory provides the in-memory element store of one board.
//
// The store maps element identity to element data. It performs no I/O: the
// board owner flushes it through the snapshot package and is told about
// every mutation through the change hook.
//
// Stored elements are never modified in place. Every write publishes a new
// sanitized copy and every read returns a clone, so readers never observe
// a partially applied mutation.
//
// Thread Safety:
//
// All operations are safe for concurrent use. Reads go straight to the
// sharded map; writes that read before they write hold the store lock.
package memory
