// Package discovery advertises and finds BoardMesh servers on the local
// network with multicast DNS.
package discovery
