// Package command defines the boardmesh-cli commands on urfave/cli/v2.
//
//   - root.go: the app, global flags and shared helpers
//   - connect.go: connect, disconnect and saved connections
//   - boards.go, export.go: board listing and downloads
//   - watch.go, draw.go, live.go: live board sessions over the websocket
//   - discover.go: mDNS browsing
//   - system.go, config.go, version.go: server probes and configuration
//
// Commands parse their flags, call the server and print through the
// output package in the format chosen with --output.
package command
