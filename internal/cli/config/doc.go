// Package config provides the boardmesh-cli configuration file
// (~/.boardmesh/cli.yaml): default server, output format and saved
// connections.
package config
