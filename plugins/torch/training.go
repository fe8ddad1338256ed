package torch

import (
	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/validation"
)

// Loss creates a loss criterion.
func Loss() *plugin.Func {
	def := define("loss", "Loss", CategoryTraining, "Loss criterion.",
		plugin.Field{
			Key: "kind", Type: plugin.TypeEnum, Label: "Kind", Default: "CrossEntropyLoss",
			Enum: []string{"CrossEntropyLoss", "MSELoss", "L1Loss"},
		},
		plugin.Field{
			Key: "reduction", Type: plugin.TypeEnum, Label: "Reduction", Default: "mean",
			Enum: []string{"mean", "sum", "none"},
		},
	)
	def.Fields = append(def.Fields, plugin.EmitFields(true)...)
	def.Imports = []plugin.Import{importNN}
	return &plugin.Func{
		Def: def,
		Gen: func(s plugin.Settings, _ []string, ctx *plugin.Context) (string, error) {
			expr := plugin.Call("nn."+s.String("kind"), plugin.Kwarg("reduction", plugin.PyValue(s.String("reduction"))))
			return plugin.Emit(s, ctx, expr), nil
		},
	}
}

// Optimizer creates an optimizer over the parameters of its input model.
func Optimizer() *plugin.Func {
	def := define("optimizer", "Optimizer", CategoryTraining, "Optimizer over the input model's parameters.",
		plugin.Field{Key: "kind", Type: plugin.TypeEnum, Label: "Kind", Default: "Adam", Enum: []string{"Adam", "SGD"}},
		plugin.Field{Key: "lr", Type: plugin.TypeFloat, Label: "Learning rate", Default: 0.001},
		plugin.Field{Key: "momentum", Type: plugin.TypeFloat, Label: "Momentum", Default: 0.0, Min: plugin.Bound(0), Max: plugin.Bound(1)},
		plugin.Field{Key: "weightDecay", Type: plugin.TypeFloat, Label: "Weight decay", Default: 0.0, Min: plugin.Bound(0)},
	)
	def.Fields = append(def.Fields, plugin.EmitFields(true)...)
	def.Imports = []plugin.Import{importTorch}
	return &plugin.Func{
		Def: def,
		Check: func(s plugin.Settings, v *validation.Validator) {
			v.Custom(s.Float("lr") > 0, "lr", "must be greater than 0")
			v.Custom(s.String("kind") == "SGD" || s.Float("momentum") == 0, "momentum", "is only supported by SGD")
		},
		Gen: func(s plugin.Settings, _ []string, ctx *plugin.Context) (string, error) {
			args := []string{
				ctx.Input(0, "model") + ".parameters()",
				plugin.Kwarg("lr", plugin.PyValue(s.Float("lr"))),
			}
			if m := s.Float("momentum"); m > 0 {
				args = append(args, plugin.Kwarg("momentum", plugin.PyValue(m)))
			}
			if wd := s.Float("weightDecay"); wd > 0 {
				args = append(args, plugin.Kwarg("weight_decay", plugin.PyValue(wd)))
			}
			return plugin.Emit(s, ctx, plugin.Call("torch.optim."+s.String("kind"), args...)), nil
		},
	}
}
