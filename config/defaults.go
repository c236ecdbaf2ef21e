package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flanksource/spec-unit/internal/files"
	"github.com/flanksource/spec-unit/models"
	"github.com/flanksource/spec-unit/rules"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// CreateDefaultConfig returns the configuration used when no file is found
func CreateDefaultConfig() *models.Config {
	return &models.Config{
		Version:  CurrentVersion,
		Includes: append([]string(nil), files.DefaultIncludes...),
		Excludes: append([]string(nil), files.DefaultExcludes...),
	}
}

// CreateStarterConfig returns the configuration written by init: the defaults
// plus an explicit entry for every built-in rule so users can see what to tune
func CreateStarterConfig() *models.Config {
	config := CreateDefaultConfig()
	config.Rules = make(map[string]models.RuleConfig)
	for _, def := range rules.DefaultRegistry.List() {
		enabled := def.Enabled
		rc := models.RuleConfig{Enabled: &enabled, Severity: string(def.Severity)}
		switch def.ID {
		case rules.GrammaticalNameID:
			rc.Options = models.RuleOptions{"context-prefixes": []string{"when", "with", "without"}}
		case rules.ShortDescriptionID:
			rc.Options = models.RuleOptions{"max-length": 40}
		case rules.OneExpectationID:
			rc.Options = models.RuleOptions{"max": 1}
		}
		config.Rules[def.ID] = rc
	}
	return config
}

// Marshal encodes config as yaml, or toml when asTOML is set
func Marshal(config *models.Config, asTOML bool) ([]byte, error) {
	var buf bytes.Buffer
	if asTOML {
		encoder := toml.NewEncoder(&buf)
		if err := encoder.Encode(config); err != nil {
			return nil, fmt.Errorf("failed to encode TOML configuration: %w", err)
		}
		return buf.Bytes(), nil
	}
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(config); err != nil {
		return nil, fmt.Errorf("failed to encode YAML configuration: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteStarterConfig writes the starter configuration into dir and returns its path.
// An existing file is only replaced when force is set.
func WriteStarterConfig(dir string, asTOML, force bool) (string, error) {
	name := ConfigFileName
	if asTOML {
		name = TOMLConfigFileName
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	data, err := Marshal(CreateStarterConfig(), asTOML)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
