// Package storage decides when boards are flushed to durable storage.
//
// The Scheduler tracks one entry per board with two explicit deadlines:
//
//   - debounce: every mutation pushes it to now + Debounce, so a burst of
//     edits produces one flush after the burst ends
//   - ceiling: lastFlush + Ceiling, which bounds how stale durable state can
//     get while edits keep arriving
//
// A single ticker checks both deadlines for every entry. A due entry is
// flushed only if its guard is free, so at most one flush per board runs at
// a time. Flush failures are logged and not retried until the next
// mutation.
//
// The element store lives in storage/memory and the snapshot backends in
// storage/snapshot.
package storage
