// Package buildinfo reports the version of the running binary.
//
// Release builds inject values via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/chartered-cli/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/chartered-cli/internal/infra/buildinfo.Commit=abc123"
//
// Anything left unset is filled from the module version and VCS stamps
// that the Go toolchain embeds.
package buildinfo
