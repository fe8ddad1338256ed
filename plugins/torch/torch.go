package torch

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/registry"
)

// Namespace of the built-in plugins.
const Namespace = "torch"

// Version of the built-in plugin set.
const Version = "1.0.0"

// Categories.
const (
	CategoryControl   = "control"
	CategoryData      = "data"
	CategoryLayer     = "layer"
	CategoryActivate  = "activation"
	CategoryContainer = "container"
	CategoryTraining  = "training"
)

var released = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	importTorch = plugin.Import{Path: "torch"}
	importNN    = plugin.Import{Path: "torch.nn", Alias: map[string]string{"torch.nn": "nn"}}
)

// Plugins returns the built-in plugin set in registration order.
func Plugins() []plugin.Plugin {
	return []plugin.Plugin{
		Start(), End(), Input(),
		Linear(), Conv2d(), ReLU(), Dropout(), BatchNorm2d(), Flatten(), MaxPool2d(),
		Sequential(), Module(),
		Loss(), Optimizer(),
	}
}

// Register adds the built-in plugins to reg.
func Register(reg *registry.Local) error {
	for _, p := range Plugins() {
		if err := reg.Register(p); err != nil {
			return fmt.Errorf("torch: %w", err)
		}
	}
	return nil
}

// define fills the metadata shared by every built-in.
func define(slug, name, category, description string, fields ...plugin.Field) *plugin.Definition {
	return &plugin.Definition{
		Slug:        slug,
		Name:        name,
		Namespace:   Namespace,
		Version:     Version,
		CreatedAt:   released,
		Category:    category,
		Description: description,
		Inputs:      []plugin.Handle{{ID: "in", Type: "tensor"}},
		Outputs:     []plugin.Handle{{ID: "out", Type: "tensor"}},
		Fields:      fields,
	}
}

// layer builds a plugin whose fragment is an nn constructor call that is
// assigned to the node variable unless emitVariable is turned off.
func layer(def *plugin.Definition, ctor func(s plugin.Settings) string) *plugin.Func {
	def.Fields = append(def.Fields, plugin.EmitFields(true)...)
	def.Imports = []plugin.Import{importNN}
	def.Emits = []string{plugin.KeyVariableName}
	return &plugin.Func{
		Def: def,
		Gen: func(s plugin.Settings, _ []string, ctx *plugin.Context) (string, error) {
			return plugin.Emit(s, ctx, ctor(s)), nil
		},
	}
}

func intField(key, label string, required bool, minVal float64) plugin.Field {
	return plugin.Field{Key: key, Type: plugin.TypeInt, Label: label, Required: required, Min: plugin.Bound(minVal)}
}

// sizeField is an int or an int pair such as a kernel size.
func sizeField(key, label string, def []any) plugin.Field {
	f := plugin.Field{
		Key: key, Type: plugin.TypeList, Items: plugin.TypeInt, Label: label,
		Min: plugin.Bound(1), Max: plugin.Bound(2),
	}
	if def != nil {
		f.Default = def
	}
	return f
}

// childExpr splits a child fragment into its variable and expression.
// Children must be single expressions.
func childExpr(i int, fragment string) (name, expr string, err error) {
	fragment = strings.TrimSpace(fragment)
	if strings.Contains(fragment, "\n") {
		return "", "", fmt.Errorf("child %d is not a single expression", i+1)
	}
	name, expr, _ = plugin.SplitAssignment(fragment)
	return name, expr, nil
}
