// Package connection provides connection management for boardmesh-cli.
//
//   - manager.go: saved connections and the current server
//   - http.go: HTTP API client and response envelope decoding
//   - socket.go: reconnecting websocket client for one board
package connection
