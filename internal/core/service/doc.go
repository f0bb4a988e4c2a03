// Package service provides the board session registry.
//
// The Registry maps board names to resident boards. Each Board owns an
// element store and the set of attached participants. The registry:
//
//   - loads boards lazily from a snapshot backend and registers them with
//     the flush scheduler
//   - replays the full board to a joining participant
//   - applies broadcast messages to the store and fans them out to every
//     other participant
//   - guards ingestion with a per-participant token bucket
//
// Mutation and fan-out of one board are serialized by the board lock.
// Boards are independent of each other.
package service
