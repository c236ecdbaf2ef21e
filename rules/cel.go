package rules

import (
	"fmt"
	"strings"

	"github.com/flanksource/gomplate/v3"
	"github.com/flanksource/spec-unit/models"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/samber/lo"
)

// CELRule is a user defined rule whose expression is evaluated against each node.
// The expression sees node, ancestors and siblings as maps (see DescriptionNode.AsMap)
// and reports a violation when it evaluates to true.
type CELRule struct {
	ruleBase
	expr    string
	message string
	program cel.Program
}

var celEnv = lo.Must(cel.NewEnv(
	cel.Variable("node", cel.MapType(cel.StringType, cel.DynType)),
	cel.Variable("ancestors", cel.ListType(cel.DynType)),
	cel.Variable("siblings", cel.ListType(cel.DynType)),
))

// NewCELRule compiles a custom rule. Compilation errors are returned here so they
// surface at startup rather than on the first node.
func NewCELRule(custom models.CustomRule) (*CELRule, error) {
	if strings.TrimSpace(custom.ID) == "" {
		return nil, fmt.Errorf("custom rule is missing an id")
	}
	if strings.TrimSpace(custom.Expr) == "" {
		return nil, fmt.Errorf("custom rule %s: expr is required", custom.ID)
	}
	targets := models.TargetAll
	if len(custom.Targets) > 0 {
		var err error
		if targets, err = models.ParseKindSet(custom.Targets); err != nil {
			return nil, fmt.Errorf("custom rule %s: %w", custom.ID, err)
		}
	}

	ast, iss := celEnv.Compile(custom.Expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("custom rule %s: invalid expression: %w", custom.ID, iss.Err())
	}
	if !ast.OutputType().IsExactType(types.BoolType) && !ast.OutputType().IsExactType(types.DynType) {
		return nil, fmt.Errorf("custom rule %s: expression must return a bool, got %s", custom.ID, ast.OutputType())
	}
	prg, err := celEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("custom rule %s: %w", custom.ID, err)
	}

	message := custom.Message
	if message == "" {
		message = custom.Description
	}
	if message == "" {
		message = fmt.Sprintf("matches %s", custom.Expr)
	}
	return &CELRule{
		ruleBase: ruleBase{id: custom.ID, targets: targets},
		expr:     custom.Expr,
		message:  message,
		program:  prg,
	}, nil
}

func (r *CELRule) Check(node *models.DescriptionNode, scope Scope) (Result, error) {
	vars := map[string]any{
		"node":      node.AsMap(),
		"ancestors": nodeMaps(scope.Ancestors),
		"siblings":  nodeMaps(scope.Siblings),
	}
	out, _, err := r.program.Eval(vars)
	if err != nil {
		return Result{}, fmt.Errorf("evaluating %s: %w", r.expr, err)
	}
	failed, ok := out.Value().(bool)
	if !ok {
		return Result{}, fmt.Errorf("expression %s returned %T, expected bool", r.expr, out.Value())
	}
	if !failed {
		return Pass(), nil
	}

	message, err := gomplate.RunTemplate(vars, gomplate.Template{Template: r.message})
	if err != nil {
		return Result{}, fmt.Errorf("rendering message: %w", err)
	}
	return Result{Failed: true, Message: strings.TrimSpace(message)}, nil
}

func nodeMaps(nodes []*models.DescriptionNode) []any {
	return lo.Map(nodes, func(n *models.DescriptionNode, _ int) any { return n.AsMap() })
}
