package torch

import (
	"github.com/kbukum/flowtorch/graph"
	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/validation"
)

func marker(slug, name, description string) *plugin.Func {
	def := define(slug, name, CategoryControl, description)
	return &plugin.Func{
		Def: def,
		Gen: func(plugin.Settings, []string, *plugin.Context) (string, error) {
			return "", nil
		},
	}
}

// Start marks the entry of a workflow. It emits no code.
func Start() *plugin.Func {
	p := marker(graph.TypeStart, "Start", "Entry point of the workflow.")
	p.Def.Inputs = nil
	return p
}

// End marks an artifact boundary. Every end node yields one artifact.
func End() *plugin.Func {
	p := marker(graph.TypeEnd, "End", "Terminates an artifact.")
	p.Def.Outputs = nil
	return p
}

// Input creates a random example tensor of the given shape.
func Input() *plugin.Func {
	def := define("input", "Input", CategoryData, "Example input tensor.",
		plugin.Field{
			Key: "shape", Type: plugin.TypeList, Items: plugin.TypeInt, Label: "Shape",
			Required: true, Min: plugin.Bound(1), Max: plugin.Bound(5),
		},
	)
	def.Inputs = nil
	def.Imports = []plugin.Import{importTorch}
	def.Fields = append(def.Fields, plugin.EmitFields(true)...)
	return &plugin.Func{
		Def: def,
		Gen: func(s plugin.Settings, _ []string, ctx *plugin.Context) (string, error) {
			args := make([]string, 0, 5)
			for _, n := range s.Ints("shape") {
				args = append(args, plugin.PyValue(n))
			}
			return plugin.Emit(s, ctx, plugin.Call("torch.randn", args...)), nil
		},
		Check: func(s plugin.Settings, v *validation.Validator) {
			for _, n := range s.Ints("shape") {
				if n <= 0 {
					v.AddError("shape", "dimensions must be positive")
					return
				}
			}
		},
	}
}
