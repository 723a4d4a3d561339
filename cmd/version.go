package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/kozaktomas/facelens/cmd.Version=...".
var (
	Version   = "dev"
	CommitSHA = ""
	BuildDate = ""
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

// currentBuild fills commit and date from the embedded VCS stamp when they
// were not set at link time.
func currentBuild() buildInfo {
	info := buildInfo{Version: Version, Commit: CommitSHA, BuildDate: BuildDate, GoVersion: runtime.Version()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = withVCS(info, bi.Settings)
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	return info
}

func withVCS(info buildInfo, settings []debug.BuildSetting) buildInfo {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func printBuild(w io.Writer, info buildInfo) {
	suffix := ""
	if info.Modified {
		suffix = " (modified)"
	}
	fmt.Fprintf(w, "facelens %s\n", info.Version)
	fmt.Fprintf(w, "  Commit: %s%s\n", info.Commit, suffix)
	fmt.Fprintf(w, "  Built:  %s\n", info.BuildDate)
	fmt.Fprintf(w, "  Go:     %s\n", info.GoVersion)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentBuild()
		if mustGetBool(cmd, "json") {
			return outputJSON(info)
		}
		printBuild(cmd.OutOrStdout(), info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "Output as JSON")
}
