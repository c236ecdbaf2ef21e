package models

import (
	"fmt"
	"sort"
)

// Config is the project configuration loaded from spec-unit.yaml or spec-unit.toml
type Config struct {
	Version  string                `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty"`
	Includes []string              `yaml:"includes,omitempty" toml:"includes,omitempty" json:"includes,omitempty"`
	Excludes []string              `yaml:"excludes,omitempty" toml:"excludes,omitempty" json:"excludes,omitempty"`
	Workers  int                   `yaml:"workers,omitempty" toml:"workers,omitempty" json:"workers,omitempty"`
	Rules    map[string]RuleConfig `yaml:"rules,omitempty" toml:"rules,omitempty" json:"rules,omitempty"`

	// Aliases maps extra DSL method names to node kinds, e.g. scenario: example
	Aliases map[string]string `yaml:"aliases,omitempty" toml:"aliases,omitempty" json:"aliases,omitempty"`

	Custom []CustomRule `yaml:"custom,omitempty" toml:"custom,omitempty" json:"custom,omitempty"`
}

// RuleConfig toggles a rule and overrides its severity and options
type RuleConfig struct {
	Enabled  *bool       `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	Severity string      `yaml:"severity,omitempty" toml:"severity,omitempty" json:"severity,omitempty"`
	Options  RuleOptions `yaml:"options,omitempty" toml:"options,omitempty" json:"options,omitempty"`
}

// IsEnabled returns the configured toggle, falling back to def
func (rc RuleConfig) IsEnabled(def bool) bool {
	if rc.Enabled == nil {
		return def
	}
	return *rc.Enabled
}

// CustomRule is a user defined CEL rule
type CustomRule struct {
	ID          string   `yaml:"id" toml:"id" json:"id"`
	Description string   `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
	Targets     []string `yaml:"targets,omitempty" toml:"targets,omitempty" json:"targets,omitempty"`
	// Expr must evaluate to a bool; true reports a violation
	Expr     string `yaml:"expr" toml:"expr" json:"expr"`
	Message  string `yaml:"message,omitempty" toml:"message,omitempty" json:"message,omitempty"`
	Severity string `yaml:"severity,omitempty" toml:"severity,omitempty" json:"severity,omitempty"`
}

// RuleOptions are free-form per rule settings
type RuleOptions map[string]any

// Keys returns the option names in sorted order
func (o RuleOptions) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int returns an integer option, def when unset
func (o RuleOptions) Int(key string, def int) (int, error) {
	raw, ok := o[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("option %s must be an integer, got %v", key, v)
		}
		return int(v), nil
	}
	return 0, fmt.Errorf("option %s must be an integer, got %T", key, raw)
}

// Strings returns a string list option, def when unset
func (o RuleOptions) Strings(key string, def []string) ([]string, error) {
	raw, ok := o[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("option %s must be a list of strings, got element %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("option %s must be a list of strings, got %T", key, raw)
}
