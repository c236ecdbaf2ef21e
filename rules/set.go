package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flanksource/spec-unit/models"
	"github.com/samber/lo"
)

// ActiveRule is a configured rule with its effective severity
type ActiveRule struct {
	Rule
	Severity    models.Severity
	Description string
}

// Set is the immutable collection of rules enabled for a run
type Set struct {
	rules []ActiveRule
}

// NewSet resolves the configuration against the registry. Any unknown rule id,
// bad severity, bad option or invalid custom rule is returned as an error
// before a single file is read.
func NewSet(cfg *models.Config, registry *Registry) (*Set, error) {
	if cfg == nil {
		cfg = &models.Config{}
	}
	if registry == nil {
		registry = DefaultRegistry
	}

	var errs []string
	ids := lo.Keys(cfg.Rules)
	sort.Strings(ids)
	for _, id := range ids {
		if !registry.Has(id) {
			errs = append(errs, fmt.Sprintf("unknown rule %q", id))
		}
	}

	set := &Set{}
	for _, def := range registry.List() {
		rc := cfg.Rules[def.ID]
		if !rc.IsEnabled(def.Enabled) {
			continue
		}
		severity := def.Severity
		if rc.Severity != "" {
			s, err := models.ParseSeverity(rc.Severity)
			if err != nil {
				errs = append(errs, fmt.Sprintf("rule %s: %v", def.ID, err))
				continue
			}
			severity = s
		}
		rule, err := def.New(rc.Options)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		set.rules = append(set.rules, ActiveRule{Rule: rule, Severity: severity, Description: def.Description})
	}

	seen := map[string]bool{}
	for _, custom := range cfg.Custom {
		if registry.Has(custom.ID) || seen[custom.ID] {
			errs = append(errs, fmt.Sprintf("custom rule %s: duplicate rule id", custom.ID))
			continue
		}
		seen[custom.ID] = true
		rule, err := NewCELRule(custom)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		severity := models.SeverityError
		if custom.Severity != "" {
			if severity, err = models.ParseSeverity(custom.Severity); err != nil {
				errs = append(errs, fmt.Sprintf("custom rule %s: %v", custom.ID, err))
				continue
			}
		}
		set.rules = append(set.rules, ActiveRule{Rule: rule, Severity: severity, Description: custom.Description})
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid rule configuration:\n  %s", strings.Join(errs, "\n  "))
	}
	sort.SliceStable(set.rules, func(i, j int) bool { return set.rules[i].ID() < set.rules[j].ID() })
	return set, nil
}

// NewSetOf builds a set from already constructed rules, used by tests and embedders
func NewSetOf(rules ...ActiveRule) *Set {
	s := &Set{rules: append([]ActiveRule(nil), rules...)}
	sort.SliceStable(s.rules, func(i, j int) bool { return s.rules[i].ID() < s.rules[j].ID() })
	return s
}

// Rules returns the active rules sorted by id
func (s *Set) Rules() []ActiveRule {
	return s.rules
}

// Len returns the number of active rules
func (s *Set) Len() int {
	return len(s.rules)
}

// IDs returns the ids of the active rules
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		ids = append(ids, r.ID())
	}
	return ids
}
