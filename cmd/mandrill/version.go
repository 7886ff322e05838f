package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set via -ldflags "-X main.version=...". Commit and date fall back to the
// VCS stamp that `go build` embeds when they are left unset.
var (
	version = "dev"
	commit  = ""
	date    = ""
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Modified  bool   `json:"modified,omitempty"`
	UserAgent string `json:"user_agent"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("mandrill {{.Version}}\n")
}

// userAgent is the User-Agent header sent to the Mandrill API.
func userAgent() string {
	return "mandrill-cli/" + version
}

func buildInfo() versionInfo {
	info := versionInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		UserAgent: userAgent(),
		Go:        runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.Date == "" {
					info.Date = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := buildInfo()
	if outputJSON {
		return outputAsJSON(cmd, info)
	}

	rev := info.Commit
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if info.Modified {
		rev += "+dirty"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "mandrill %s\n", info.Version)
	fmt.Fprintf(out, "  commit: %s (%s)\n", rev, info.Date)
	fmt.Fprintf(out, "  agent:  %s\n", info.UserAgent)
	fmt.Fprintf(out, "  go:     %s %s/%s\n", info.Go, info.OS, info.Arch)
	return nil
}
