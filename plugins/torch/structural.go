package torch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/scope"
)

// LayerPattern matches the names given to unnamed module children. Forward
// bodies may refer to them without the self qualifier.
var LayerPattern = regexp.MustCompile(`^layer\d+$`)

const indent = "    "

// Sequential nests its children, in edge order, as the arguments of an
// nn.Sequential container.
func Sequential() *plugin.Func {
	def := define("sequential", "Sequential", CategoryContainer, "Chains child layers in order.")
	def.Fields = plugin.EmitFields(true)
	def.Imports = []plugin.Import{importNN}
	def.Structural = true
	def.MinChildren = 1
	return &plugin.Func{
		Def: def,
		Gen: func(s plugin.Settings, children []string, ctx *plugin.Context) (string, error) {
			args := make([]string, len(children))
			for i, c := range children {
				_, expr, err := childExpr(i, c)
				if err != nil {
					return "", err
				}
				args[i] = expr
			}
			return plugin.Emit(s, ctx, plugin.Call("nn.Sequential", args...)), nil
		},
	}
}

// Module builds an nn.Module subclass. Each child becomes an attribute
// named after its variable, or layerN when it has none. The forward
// body is either the forward setting or a chain through every child, and
// bare references to children are qualified with self.
func Module() *plugin.Func {
	def := define("module", "Module", CategoryContainer, "Defines a custom nn.Module.",
		plugin.Field{
			Key: "className", Type: plugin.TypeString, Label: "Class name", Default: "Net",
			Pattern: `^[A-Z][A-Za-z0-9_]*$`,
		},
		plugin.Field{Key: "input", Type: plugin.TypeString, Label: "Input name", Default: "x", Pattern: `^[A-Za-z_][A-Za-z0-9_]*$`},
		plugin.Field{Key: "forward", Type: plugin.TypeString, Label: "Forward body"},
	)
	def.Fields = append(def.Fields, plugin.EmitFields(true)...)
	def.Imports = []plugin.Import{importTorch, importNN}
	def.Structural = true
	def.MinChildren = 1
	rw := scope.New(LayerPattern)

	return &plugin.Func{
		Def: def,
		Gen: func(s plugin.Settings, children []string, ctx *plugin.Context) (string, error) {
			className := s.String("className")
			in := s.String("input")

			names := make([]string, len(children))
			var b strings.Builder
			fmt.Fprintf(&b, "class %s(nn.Module):\n", className)
			b.WriteString(indent + "def __init__(self):\n")
			b.WriteString(indent + indent + "super().__init__()\n")
			for i, c := range children {
				name, expr, err := childExpr(i, c)
				if err != nil {
					return "", err
				}
				if name == "" {
					name = fmt.Sprintf("layer%d", i+1)
				}
				names[i] = name
				fmt.Fprintf(&b, "%sself.%s = %s\n", indent+indent, name, expr)
			}

			body := dedent(s.String("forward"))
			if body == "" {
				body = chain(names, in)
			}
			res, err := rw.Rewrite(body, names)
			if err != nil {
				return "", err
			}
			for _, fv := range res.Free {
				ctx.Warn(fmt.Sprintf("forward line %d: %s is not a child of %s", fv.Line, fv.Name, className))
			}

			fmt.Fprintf(&b, "\n%sdef forward(self, %s):\n", indent, in)
			for _, line := range strings.Split(res.Body, "\n") {
				if strings.TrimSpace(line) == "" {
					b.WriteByte('\n')
					continue
				}
				b.WriteString(indent + indent + line + "\n")
			}

			if !s.Bool(plugin.KeyEmitVariable) {
				// The trailing newline keeps a blank line after the class.
				return strings.TrimRight(b.String(), "\n") + "\n", nil
			}
			b.WriteString("\n" + plugin.Emit(s, ctx, className+"()"))
			return b.String(), nil
		},
	}
}

// chain feeds in through every layer and returns it.
func chain(names []string, in string) string {
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "%s = %s(%s)\n", in, n, in)
	}
	b.WriteString("return " + in)
	return b.String()
}

// dedent removes the common leading whitespace of the non-blank lines.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	common := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}
	if common <= 0 {
		return strings.TrimSpace(s)
	}
	for i, l := range lines {
		if len(l) >= common {
			lines[i] = strings.TrimRight(l[common:], " \t")
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}
