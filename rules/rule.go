// Package rules holds the style rules checked against description trees.
package rules

import (
	"fmt"
	"sort"

	"github.com/flanksource/spec-unit/models"
	"github.com/samber/lo"
)

// Scope is what a rule may look at besides the node itself
type Scope struct {
	Tree *models.FileTree
	// Ancestors runs from the root down to the node's parent
	Ancestors []*models.DescriptionNode
	// Siblings are the parent's children (or the roots) in source order, including the node
	Siblings []*models.DescriptionNode
}

// Result of checking one node
type Result struct {
	Failed  bool
	Message string
	// Anchor overrides the node location, e.g. to point at a loop
	Anchor *models.Location
}

// Pass is the result for a node that satisfies the rule
func Pass() Result {
	return Result{}
}

// Fail reports a violation with a formatted message
func Fail(format string, args ...any) Result {
	return Result{Failed: true, Message: fmt.Sprintf(format, args...)}
}

// Rule is a stateless predicate over nodes of the kinds in Targets.
// Implementations must not mutate the node or the scope.
type Rule interface {
	ID() string
	Targets() models.KindSet
	Check(node *models.DescriptionNode, scope Scope) (Result, error)
}

// Factory builds a rule from its configured options
type Factory func(opts models.RuleOptions) (Rule, error)

// Definition describes a built-in rule
type Definition struct {
	ID          string
	Description string
	Targets     models.KindSet
	Severity    models.Severity
	Enabled     bool
	New         Factory
}

// Registry manages the available rule definitions
type Registry struct {
	definitions map[string]Definition
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// Register adds a definition, replacing any with the same id
func (r *Registry) Register(def Definition) {
	r.definitions[def.ID] = def
}

// Get retrieves a definition by id
func (r *Registry) Get(id string) (Definition, bool) {
	def, ok := r.definitions[id]
	return def, ok
}

// Has checks if a rule id is registered
func (r *Registry) Has(id string) bool {
	_, ok := r.definitions[id]
	return ok
}

// List returns all definitions sorted by id
func (r *Registry) List() []Definition {
	defs := lo.Values(r.definitions)
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// DefaultRegistry holds the built-in rules
var DefaultRegistry = NewBuiltinRegistry()

// checkOptions rejects option names a rule does not understand
func checkOptions(id string, opts models.RuleOptions, allowed ...string) error {
	for _, key := range opts.Keys() {
		if !lo.Contains(allowed, key) {
			if len(allowed) == 0 {
				return fmt.Errorf("rule %s takes no options, got %q", id, key)
			}
			return fmt.Errorf("rule %s: unknown option %q, must be one of: %v", id, key, allowed)
		}
	}
	return nil
}
