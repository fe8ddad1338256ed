package plugin

import (
	"sort"
	"strconv"
	"strings"
)

// Settings keys of the emit-variable convention.
const (
	KeyEmitVariable = "emitVariable"
	KeyVariableName = "variableName"
)

// EmitFields returns the schema of the emit-variable convention. Plugins
// append it to their own fields.
func EmitFields(emitByDefault bool) []Field {
	return []Field{
		{Key: KeyEmitVariable, Type: TypeBool, Label: "Assign to variable", Default: emitByDefault},
		{Key: KeyVariableName, Type: TypeString, Label: "Variable name", Pattern: `^[A-Za-z_][A-Za-z0-9_]*$`},
	}
}

// VariableFor returns the variable a node assigns to: its variableName
// setting, or the default derived from the node id.
func VariableFor(s Settings, nodeID string) string {
	if name := s.String(KeyVariableName); name != "" {
		return name
	}
	return VarName(nodeID)
}

// Emit renders expr as an assignment when the node emits a variable and
// as a bare expression otherwise.
func Emit(s Settings, ctx *Context, expr string) string {
	if !s.Bool(KeyEmitVariable) {
		return expr
	}
	name := s.String(KeyVariableName)
	if name == "" && ctx != nil {
		name = ctx.Variable
	}
	if name == "" {
		return expr
	}
	return name + " = " + expr
}

// SplitAssignment splits "name = expr" into its parts. ok is false for
// bare expressions.
func SplitAssignment(fragment string) (name, expr string, ok bool) {
	lhs, rhs, found := strings.Cut(fragment, "=")
	if !found || strings.HasPrefix(rhs, "=") {
		return "", fragment, false
	}
	lhs = strings.TrimSpace(lhs)
	if !isIdent(lhs) {
		return "", fragment, false
	}
	return lhs, strings.TrimSpace(rhs), true
}

// AssignedVariable returns the variable a fragment leaves its result in:
// the target of its last line when that line is an unindented assignment.
func AssignedVariable(fragment string) (string, bool) {
	fragment = strings.TrimRight(fragment, "\n")
	last := fragment[strings.LastIndexByte(fragment, '\n')+1:]
	if last == "" || last[0] == ' ' || last[0] == '\t' {
		return "", false
	}
	name, _, ok := SplitAssignment(last)
	return name, ok
}

// VarName derives an identifier from a node id: "Conv-1" becomes "conv_1".
func VarName(nodeID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(nodeID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "node"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "n_" + name
	}
	return name
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !alpha && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// PyValue renders a settings value as a Python literal.
func PyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return strconv.Quote(t)
	case float64:
		return pyFloat(t)
	case float32:
		return pyFloat(float64(t))
	case []any:
		parts := make([]string, len(t))
		for i := range t {
			parts[i] = PyValue(t[i])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ": " + PyValue(t[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if i, ok := toInt(v); ok {
		return strconv.Itoa(i)
	}
	return "None"
}

// PyTuple renders a list of integers as a Python tuple, collapsing a
// single element to a scalar.
func PyTuple(values []int) string {
	if len(values) == 1 {
		return strconv.Itoa(values[0])
	}
	parts := make([]string, len(values))
	for i, n := range values {
		parts[i] = strconv.Itoa(n)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func pyFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// Call renders name(arg, ...) skipping empty arguments.
func Call(name string, args ...string) string {
	kept := args[:0:0]
	for _, a := range args {
		if a != "" {
			kept = append(kept, a)
		}
	}
	return name + "(" + strings.Join(kept, ", ") + ")"
}

// Kwarg renders key=value, or "" when value is empty.
func Kwarg(key, value string) string {
	if value == "" {
		return ""
	}
	return key + "=" + value
}
