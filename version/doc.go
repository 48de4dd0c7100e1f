// Package version exposes build information for the transcribe CLI and the
// relay, and the User-Agent string sent with every outbound request.
//
// Values are injected at build time:
//
//	go build -ldflags "-X github.com/kbukum/transcribekit/version.Version=1.2.0" ./cmd/transcribe
package version
