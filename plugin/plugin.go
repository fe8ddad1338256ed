package plugin

import (
	"github.com/kbukum/flowtorch/validation"
)

// Plugin is the contract every node type implements.
//
// Validate must be pure and fail closed. Generate must be deterministic:
// the same settings, children and context always produce the same
// fragment. Generate is only called with settings returned by a successful
// Validate.
type Plugin interface {
	Definition() *Definition
	Validate(raw any) ValidationResult
	Generate(s Settings, children []string, ctx *Context) (string, error)
}

// ValidationResult is the outcome of validating raw node settings.
// Settings holds the normalized copy when Valid is true.
type ValidationResult struct {
	Valid    bool                    `json:"valid"`
	Errors   []validation.FieldError `json:"errors,omitempty"`
	Settings Settings                `json:"-"`
}

// Context carries per-node information into Generate.
type Context struct {
	// NodeID is the id of the node being generated.
	NodeID string
	// Variable is the default variable name for the node.
	Variable string
	// Inputs are the variable names of the node's direct predecessors in
	// edge order.
	Inputs []string

	warnings []string
}

// Warn records a non-fatal finding about the generated fragment.
func (c *Context) Warn(msg string) {
	c.warnings = append(c.warnings, msg)
}

// Warnings returns the findings recorded by Warn.
func (c *Context) Warnings() []string {
	return c.warnings
}

// Input returns the i-th input variable, or fallback when absent.
func (c *Context) Input(i int, fallback string) string {
	if c == nil || i < 0 || i >= len(c.Inputs) {
		return fallback
	}
	return c.Inputs[i]
}

// GenerateFunc renders a fragment from normalized settings.
type GenerateFunc func(s Settings, children []string, ctx *Context) (string, error)

// CheckFunc adds cross-field rules on top of schema validation.
type CheckFunc func(s Settings, v *validation.Validator)

// Func is a Plugin assembled from a Definition and plain functions.
type Func struct {
	Def   *Definition
	Gen   GenerateFunc
	Check CheckFunc
}

var _ Plugin = (*Func)(nil)

// Definition returns the static plugin metadata.
func (f *Func) Definition() *Definition { return f.Def }

// Validate runs schema validation and, if it passes, the Check rules.
func (f *Func) Validate(raw any) ValidationResult {
	res := ValidateSettings(f.Def, raw)
	if !res.Valid || f.Check == nil {
		return res
	}
	v := validation.New()
	f.Check(res.Settings, v)
	if v.HasErrors() {
		return ValidationResult{Valid: false, Errors: v.Errors()}
	}
	return res
}

// Generate renders the node fragment.
func (f *Func) Generate(s Settings, children []string, ctx *Context) (string, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	return f.Gen(s, children, ctx)
}
