package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/spec-unit/git"
	"github.com/flanksource/spec-unit/internal/files"
	"github.com/flanksource/spec-unit/models"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName     = "spec-unit.yaml"
	TOMLConfigFileName = "spec-unit.toml"
	CurrentVersion     = "1.0"
)

// ConfigFileNames are tried in order in each directory
var ConfigFileNames = []string{ConfigFileName, "spec-unit.yml", TOMLConfigFileName}

// ErrNotFound is returned when no configuration file exists between the start
// directory and the git root
var ErrNotFound = errors.New("configuration file not found")

type Parser struct {
	rootDir string
}

func NewParser(rootDir string) *Parser {
	return &Parser{
		rootDir: rootDir,
	}
}

// findGitRoot returns the work tree root, or "" outside a repository
func findGitRoot(startDir string) string {
	root, err := git.FindRoot(startDir)
	if err != nil {
		logger.Debugf("%s is not in a git repository: %v", startDir, err)
		return ""
	}
	return root
}

// FindConfigFile searches for a config file by walking up from the root
// directory, stopping at the git root (or the filesystem root outside a repository)
func (p *Parser) FindConfigFile() (string, error) {
	startDir, err := filepath.Abs(p.rootDir)
	if err != nil {
		return "", err
	}
	gitRoot := findGitRoot(startDir)
	dir := startDir

	for {
		for _, name := range ConfigFileNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				logger.Debugf("Found config file: %s", configPath)
				return configPath, nil
			}
		}

		// Don't go above git root
		if dir == gitRoot {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in directory tree from %s to %s", ErrNotFound, startDir, dir)
}

// LoadConfig loads the nearest configuration file, falling back to the defaults
// when there is none. It returns the path that was loaded ("" for defaults).
func (p *Parser) LoadConfig() (*models.Config, string, error) {
	configPath, err := p.FindConfigFile()
	if errors.Is(err, ErrNotFound) {
		logger.Debugf("%v, using defaults", err)
		config := CreateDefaultConfig()
		return config, "", p.validateConfig(config)
	}
	if err != nil {
		return nil, "", err
	}
	config, err := LoadFile(configPath)
	return config, configPath, err
}

// LoadFile loads and validates a yaml or toml configuration file.
// Unknown keys are rejected.
func LoadFile(configPath string) (*models.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var config models.Config
	if strings.EqualFold(filepath.Ext(configPath), ".toml") {
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML configuration %s: %w", configPath, err)
		}
	} else if len(bytes.TrimSpace(data)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML configuration %s: %w", configPath, err)
		}
	}

	if err := (&Parser{}).validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", configPath, err)
	}
	return &config, nil
}

// validateConfig checks everything that does not depend on the rule registry
func (p *Parser) validateConfig(config *models.Config) error {
	if config.Version == "" {
		config.Version = CurrentVersion
	}
	if config.Version != CurrentVersion {
		return fmt.Errorf("unsupported version %q, expected %q", config.Version, CurrentVersion)
	}
	if config.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", config.Workers)
	}
	if err := files.ValidatePatterns(config.Includes); err != nil {
		return fmt.Errorf("includes: %w", err)
	}
	if err := files.ValidatePatterns(config.Excludes); err != nil {
		return fmt.Errorf("excludes: %w", err)
	}
	if _, err := Aliases(config); err != nil {
		return err
	}
	for i, custom := range config.Custom {
		if strings.TrimSpace(custom.ID) == "" {
			return fmt.Errorf("custom rule #%d is missing an id", i+1)
		}
	}
	return nil
}

// Aliases converts the configured DSL aliases to node kinds
func Aliases(config *models.Config) (map[string]models.Kind, error) {
	aliases := make(map[string]models.Kind, len(config.Aliases))
	for name, kindName := range config.Aliases {
		if !isIdentifier(name) {
			return nil, fmt.Errorf("alias %q is not a valid method name", name)
		}
		kind, err := models.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("alias %s: %w", name, err)
		}
		aliases[name] = kind
	}
	return aliases, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
