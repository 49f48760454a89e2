package version

// Flag contains extra info about the version. It is helpful for tracking
// versions while developing. It should always be empty on the master branch.
// This is enforced by TestFlagEmpty.
const Flag = ""

var (
	// Version is The full version string
	Version = "0.1.0"

	// GitCommit is set with --ldflags "-X github.com/mosaicnetworks/firefly/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	if Flag != "" {
		Version += "-" + Flag
	}

	if len(GitCommit) >= 8 {
		Version += "-" + GitCommit[:8]
	}
}
