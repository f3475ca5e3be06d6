// Package version holds build identification injected with -ldflags.
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Short returns "<version>+<sha7>", or just the version when the SHA is
// not known. Used in window titles and tool banners.
func Short() string {
	if GitSHA == "" || GitSHA == "unknown" {
		return Version
	}
	sha := GitSHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	return Version + "+" + sha
}
