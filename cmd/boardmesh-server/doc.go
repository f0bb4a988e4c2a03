// Package main provides the entry point for boardmesh-server.
//
// The server keeps the authoritative state of every whiteboard, relays
// drawing messages between participants over websockets and persists
// boards to snapshot files or badger.
//
// Usage:
//
//	boardmesh-server [-config FILE]
//	boardmesh-server -version
//
// SIGHUP and edits to the config file reload the log level and the tool
// block list. SIGINT and SIGTERM shut down after a final flush.
package main
