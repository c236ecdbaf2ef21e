package main

import (
	"fmt"
	"log"
	"os"

	"github.com/flanksource/spec-unit/cmd"
	"github.com/google/gops/agent"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	dirty   = "unknown"
)

func main() {
	// gops agent for runtime debugging of long runs over large suites
	if err := agent.Listen(agent.Options{
		ShutdownCleanup: true,
	}); err != nil {
		log.Printf("Failed to start gops agent: %v", err)
	}
	defer agent.Close()

	cmd.SetVersionInfo(GetVersionInfo)

	if len(os.Args) > 1 && os.Args[1] == "-version" {
		v, c, d, _ := GetVersionInfo()
		fmt.Printf("spec-unit version %s (commit: %s, built: %s)\n", v, c, d)
		os.Exit(0)
	}
	cmd.Execute()
}

// GetVersionInfo returns version information for use by cmd package
func GetVersionInfo() (string, string, string, bool) {
	isDirty := dirty == "true"
	versionStr := version
	if isDirty {
		versionStr += "-dirty"
	}
	return versionStr, commit, date, isDirty
}
