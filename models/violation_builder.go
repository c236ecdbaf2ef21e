package models

// ViolationBuilder provides a fluent API for constructing Violations
// anchored on a description node
type ViolationBuilder struct {
	violation Violation
}

// NewViolationBuilder creates a new ViolationBuilder
func NewViolationBuilder(rule string) *ViolationBuilder {
	return &ViolationBuilder{
		violation: Violation{
			Rule:     rule,
			Severity: SeverityError,
		},
	}
}

// WithNode anchors the violation on node
func (vb *ViolationBuilder) WithNode(node *DescriptionNode) *ViolationBuilder {
	vb.violation.Node = node
	vb.violation.Kind = node.Kind
	vb.violation.FullName = node.FullName
	vb.violation.File = node.Location.File
	vb.violation.Line = node.Location.Line
	vb.violation.Column = node.Location.Column
	return vb
}

// WithLocation moves the anchor, e.g. to the loop that generated a node
func (vb *ViolationBuilder) WithLocation(loc Location) *ViolationBuilder {
	if loc.File != "" {
		vb.violation.File = loc.File
	}
	vb.violation.Line = loc.Line
	vb.violation.Column = loc.Column
	return vb
}

// WithMessage sets the violation message
func (vb *ViolationBuilder) WithMessage(message string) *ViolationBuilder {
	vb.violation.Message = message
	return vb
}

// WithSeverity sets the severity
func (vb *ViolationBuilder) WithSeverity(severity Severity) *ViolationBuilder {
	vb.violation.Severity = severity
	return vb
}

// WithCode sets the code snippet where the violation was found
func (vb *ViolationBuilder) WithCode(code string) *ViolationBuilder {
	vb.violation.Code = code
	return vb
}

// Build constructs and returns the final Violation
func (vb *ViolationBuilder) Build() Violation {
	return vb.violation
}
