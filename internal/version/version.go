package version

// Set at link time via -ldflags "-X github.com/Norgate-AV/ratbuild/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
