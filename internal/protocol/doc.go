// Package protocol defines the socket frames and the replay engine.
//
// An Envelope carries one element message for a board. A message is either
// a flat element mutation routed to a tool by its tool name, or a batch
// whose children are replayed in order. The Engine resolves incoming
// messages into tool Draw calls:
//
//   - messages for a tool that is not registered yet wait in a per-tool
//     FIFO queue and are drained when the tool registers
//   - batches are processed in chunks with a cooperative yield between
//     chunks, so a full-board replay does not monopolize the caller
//   - messages carrying a move delta are also forwarded to the mover tool
package protocol
