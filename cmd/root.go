package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ExitViolations  = 1
	ExitConfigError = 2
)

var (
	cfgFile    string
	outputFile string
	jsonOutput bool
	format     string
	workingDir string
)

// ExitError carries the process exit code back to Execute
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// configError marks err as a configuration problem, reported before any file is read
func configError(err error) error {
	return &ExitError{Code: ExitConfigError, Err: err}
}

var rootCmd = &cobra.Command{
	Use:   "spec-unit",
	Short: "Style linter for RSpec test suites",
	Long: `spec-unit parses RSpec spec files into a tree of describe, context and it
blocks and checks every block against naming and structure rules: no "should"
in example names, one expectation per example, no examples generated in loops,
and more.

Rules are configured in spec-unit.yaml (or spec-unit.toml), found by walking up
from the current directory to the git root.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			logger.Errorf("%v", exitErr.Err)
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(ExitViolations)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Project configuration file (default: nearest spec-unit.yaml or spec-unit.toml)")
	rootCmd.PersistentFlags().StringVar(&workingDir, "cwd", "", "Working directory")

	// Output format flags
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Format output in json")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Output format: text, pretty, compact, json, markdown, html, sqlite")
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))

	logger.BindFlags(rootCmd.PersistentFlags())
}

// initConfig reads user defaults from ~/.spec-unit.yaml and SPEC_UNIT_* variables.
// Project rules live in spec-unit.yaml and are loaded by each command.
func initConfig() {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigType("yaml")
	viper.SetConfigName(".spec-unit")

	viper.SetEnvPrefix("SPEC_UNIT")
	viper.AutomaticEnv()
	viper.SetDefault("format", "text")
	viper.SetDefault("workers", 0)

	if err := viper.ReadInConfig(); err == nil {
		logger.Debugf("Using user defaults from: %s", viper.ConfigFileUsed())
	}
}

// GetWorkingDir returns --cwd or the process working directory
func GetWorkingDir() (string, error) {
	if workingDir != "" {
		return workingDir, nil
	}
	return os.Getwd()
}

// resolveFormat picks the report format: --json, then --format, then user defaults
func resolveFormat() string {
	if jsonOutput {
		return "json"
	}
	return viper.GetString("format")
}
