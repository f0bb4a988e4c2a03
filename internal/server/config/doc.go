// Package config defines the server configuration structure.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default configuration values
//   - verify.go: validation of loaded values
//   - sanitize.go: copy safe for the config dump endpoint and logs
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// BOARDMESH_ environment variables and the legacy whiteboard variables.
package config
