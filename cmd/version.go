package cmd

import (
	"fmt"

	"github.com/flanksource/clicky"
	"github.com/spf13/cobra"
)

// getVersionInfo is provided by the main package
var getVersionInfo func() (version, commit, date string, dirty bool)

// VersionInfo is the version command output
type VersionInfo struct {
	Program string `json:"program" pretty:"label=Program"`
	Version string `json:"version" pretty:"label=Version"`
	Commit  string `json:"commit" pretty:"label=Commit"`
	Built   string `json:"built" pretty:"label=Built"`
	Status  string `json:"status" pretty:"label=Status"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolveFormat() != "json" {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
			return nil
		}
		output, err := clicky.Format(currentVersion(), clicky.FormatOptions{Format: "json"})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

func currentVersion() VersionInfo {
	info := VersionInfo{Program: "spec-unit", Version: "dev", Commit: "unknown", Built: "unknown", Status: "unknown"}
	if getVersionInfo == nil {
		return info
	}
	version, commit, date, dirty := getVersionInfo()
	info.Version, info.Commit, info.Built = version, commit, date
	info.Status = "clean"
	if dirty {
		info.Status = "dirty"
	}
	return info
}

func versionString() string {
	v := currentVersion()
	return fmt.Sprintf("%s version %s (commit: %s, built: %s, %s)", v.Program, v.Version, v.Commit, v.Built, v.Status)
}

// SetVersionInfo sets the version information function
func SetVersionInfo(fn func() (string, string, string, bool)) {
	getVersionInfo = fn
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
