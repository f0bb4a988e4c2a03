// Package buildinfo reports the version of the running binary.
//
// Release builds inject the values with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/boardmesh-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Values left unset are filled from the module build information the Go
// toolchain embeds, so "go install" builds still report their revision.
package buildinfo
