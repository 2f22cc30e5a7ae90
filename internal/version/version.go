// Package version holds the build version, set at link time with
// -ldflags "-X github.com/bnema/webim-client/internal/version.Version=v1.2.3".
package version

var Version = "dev"

// UserAgent is sent with every request to the chat server.
func UserAgent() string {
	return "webim-client/" + Version
}
