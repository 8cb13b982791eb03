package version

// Build variables set via ldflags:
// -X 'github.com/compozy/docsweep/pkg/version.Version=v1.0.0'
// -X 'github.com/compozy/docsweep/pkg/version.CommitHash=abc123'
// -X 'github.com/compozy/docsweep/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Info is the build information reported by the version command.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
	}
}
