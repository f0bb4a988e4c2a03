// Package output renders boardmesh-cli results as tables, JSON or YAML,
// plus the progress bar and spinner used by long-running commands.
package output
