// Package main provides the entry point for boardmesh-cli.
//
// boardmesh-cli talks to a BoardMesh server: it lists and exports boards,
// watches and draws on them over the websocket, and finds servers on the
// local network.
//
// Usage:
//
//	boardmesh-cli [global flags] COMMAND [flags] [args]
//	boardmesh-cli connect --name office http://10.0.0.5:8080
//	boardmesh-cli draw demo rect 10 10 200 120
//	boardmesh-cli export --format pdf demo
package main
