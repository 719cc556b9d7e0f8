package buildinfo

// Set at build time via -ldflags "-X".
var (
	Version    = "v2.0.0"
	CommitHash = "unknown"
	BuildDate  = ""
)

type Info struct {
	About      string `json:"about,omitempty"`
	Service    string `json:"service,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

func GetBuildInfo() Info {
	return Info{
		About:      "https://github.com/efs-sdk/accessmanager",
		Service:    "accessmanager",
		APIVersion: "v2.0",
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
	}
}
