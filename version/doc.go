// Package version reports the storefront build: version, commit, branch and
// build time. Values come from -ldflags and fall back to the VCS stamp Go
// embeds in the binary:
//
//	go build -ldflags "-X github.com/AmareGatie/phase4/version.Version=1.2.0" ./cmd/storefront
package version
