package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/spec-unit/config"
	"github.com/flanksource/spec-unit/engine"
	"github.com/flanksource/spec-unit/git"
	"github.com/flanksource/spec-unit/internal/files"
	"github.com/flanksource/spec-unit/models"
	"github.com/flanksource/spec-unit/output"
	"github.com/flanksource/spec-unit/parser"
	"github.com/flanksource/spec-unit/rules"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	includes    []string
	excludes    []string
	changedOnly bool
	workers     int
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Check spec files against the style rules",
	Long: `Check spec files against the configured style rules.

Paths may be files or directories; directories are searched for files matching
the include patterns (default **/*_spec.rb).

Exit codes:
  0  no violations
  1  violations found or a file could not be parsed
  2  invalid configuration

Examples:
  # Check every spec below the current directory
  spec-unit check

  # Check one directory and write a markdown report
  spec-unit check spec/models --format markdown -o report.md

  # Only check specs changed in the git work tree
  spec-unit check --changed

  # Append the results to a sqlite database for a CI dashboard
  spec-unit check --format sqlite -o spec-unit.db`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringSliceVar(&includes, "include", nil, "Include glob patterns (overrides the configuration)")
	checkCmd.Flags().StringSliceVar(&excludes, "exclude", nil, "Exclude glob patterns (added to the configured or default excludes)")
	checkCmd.Flags().BoolVar(&changedOnly, "changed", false, "Only check files changed in the git work tree")
	checkCmd.Flags().IntVar(&workers, "workers", 0, "Number of files processed in parallel (default: number of CPUs)")
	_ = viper.BindPFlag("workers", checkCmd.Flags().Lookup("workers"))
}

// loadProjectConfig loads --config, or the nearest configuration file from dir
func loadProjectConfig(dir string) (*models.Config, string, error) {
	if cfgFile != "" {
		cfg, err := config.LoadFile(cfgFile)
		return cfg, cfgFile, err
	}
	return config.NewParser(dir).LoadConfig()
}

func runCheck(cmd *cobra.Command, args []string) error {
	wd, err := GetWorkingDir()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	// Everything that can be wrong with the configuration fails here, before any file is read
	cfg, configPath, err := loadProjectConfig(wd)
	if err != nil {
		return configError(err)
	}
	if configPath != "" {
		logger.Infof("Using configuration %s", configPath)
	}
	set, err := rules.NewSet(cfg, nil)
	if err != nil {
		return configError(err)
	}
	aliases, err := config.Aliases(cfg)
	if err != nil {
		return configError(err)
	}
	reportFormat := resolveFormat()
	if err := output.ValidateFormat(reportFormat); err != nil {
		return configError(err)
	}
	if reportFormat == "sqlite" && outputFile == "" {
		return configError(output.ErrOutputRequired)
	}

	patterns := lo.Ternary(len(includes) > 0, includes, cfg.Includes)
	ignore := files.MergeExcludes(cfg.Excludes, excludes)
	if err := files.ValidatePatterns(append(append([]string{}, patterns...), ignore...)); err != nil {
		return configError(err)
	}

	root := wd
	if configPath != "" {
		root = filepath.Dir(configPath)
	}
	finder := files.NewFinder(root, patterns, ignore)
	if len(args) == 0 {
		args = []string{wd}
	}
	specs, err := finder.Find(args...)
	if err != nil {
		return err
	}

	if changedOnly {
		if specs, err = onlyChanged(wd, specs); err != nil {
			return err
		}
	}
	logger.Infof("Checking %d spec file(s) with %d rule(s)", len(specs), set.Len())

	n := workers
	if n == 0 {
		n = viper.GetInt("workers")
	}
	if n == 0 {
		n = cfg.Workers
	}
	runner := engine.NewRunner(
		parser.New(parser.Options{Aliases: aliases}),
		engine.New(set),
		engine.RunnerOptions{Workers: n},
	)
	result, err := runner.Run(cmd.Context(), specs)
	if err != nil {
		return err
	}

	outputManager := output.NewOutputManager(reportFormat)
	outputManager.SetOutputFile(outputFile)
	if err := outputManager.Output(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if reportFormat != "json" || outputFile != "" {
		printSummary(result)
	}

	if code := output.ExitCode(result); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// onlyChanged keeps the specs that git reports as changed
func onlyChanged(dir string, specs []string) ([]string, error) {
	changed, err := git.ChangedFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("--changed: %w", err)
	}
	return lo.Filter(specs, func(path string, _ int) bool {
		abs, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		return lo.Contains(changed, abs)
	}), nil
}

func printSummary(result *models.AnalysisResult) {
	out := color.Error
	fmt.Fprintln(out)

	counts := result.CountBySeverity()
	switch {
	case len(result.Violations) == 0 && len(result.Unparseable) == 0:
		color.New(color.FgGreen).Fprintln(out, "✓ No spec style violations found!")
	case len(result.Violations) > 0:
		color.New(color.FgRed).Fprintf(out, "✗ Found %d violation(s) in %d file(s): %d error(s), %d warning(s), %d info\n",
			len(result.Violations), result.FilesWithViolations(),
			counts[models.SeverityError], counts[models.SeverityWarning], counts[models.SeverityInfo])
	}
	if len(result.Unparseable) > 0 {
		color.New(color.FgRed).Fprintf(out, "✗ %d file(s) could not be parsed\n", len(result.Unparseable))
	}
	if len(result.RuleErrors) > 0 {
		color.New(color.FgYellow).Fprintf(out, "! %d rule evaluation(s) failed and were skipped, see the report\n", len(result.RuleErrors))
	}
	fmt.Fprintf(out, "  Analyzed %d file(s) with %d rule(s)\n", result.FileCount, result.RuleCount)
}
