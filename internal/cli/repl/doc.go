// Package repl provides the interactive prompt used by "boardmesh-cli draw"
// when no drawing command is given on the command line.
package repl
