package buildinfo

// These variables are set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/notifybot/core/buildinfo.Version=v3.01'
//	-X 'github.com/m3rciful/notifybot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/notifybot/core/buildinfo.Date=2025-08-30T12:00:00Z'
var (
	// Version reports the release shown in the about and statistics views.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders version and commit for the startup log and the about view.
func String() string {
	if Commit == "" || Commit == "local" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
