// Package logger provides structured logging for BoardMesh.
//
// It configures log/slog handlers and keeps a process-wide level that can
// be changed at runtime, for example when the config file is reloaded.
//
//   - logger.go: handler construction and the runtime level
//   - context.go: request, participant and board ids carried in a context
//   - redact.go: masking of sensitive attribute values
package logger
