package config

// The release pipeline stamps these through the linker:
//
//	go build -ldflags "\
//	  -X github.com/Abhishek-cmd13/Emailautomation/internal/config.version=$VERSION \
//	  -X github.com/Abhishek-cmd13/Emailautomation/internal/config.commit=$(git rev-parse --short HEAD) \
//	  -X github.com/Abhishek-cmd13/Emailautomation/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped binaries (go run, test binaries) keep the placeholders.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo snapshots the linker variables into the struct carried on
// Config.Build. Called once during LoadConfig.
func NewBuildInfo() BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
}
