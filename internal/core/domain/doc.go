// Package domain defines the board element model and its invariants.
//
// Domain models are pure values without IO dependencies. This package
// contains:
//
//   - Element: one unit of board state with lenient JSON decoding
//   - Sanitize: the clamping rules every element passes before it is stored
//   - NewElementID and ValidateBoardName: identity helpers
//   - Errors: domain error codes shared by the server and the CLI
package domain
