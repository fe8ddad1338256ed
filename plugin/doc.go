// Package plugin defines the contract between the composer and node types.
//
// A plugin couples static metadata (Definition: settings schema, handles,
// emitted variables, imports) with a pure generation function. Settings
// are validated and normalized by ValidateSettings before generation, so
// generators always see defaults filled in.
//
//	lin := &plugin.Func{
//	    Def: &plugin.Definition{Slug: "linear", Fields: fields},
//	    Gen: func(s plugin.Settings, _ []string, ctx *plugin.Context) (string, error) {
//	        return plugin.Emit(s, ctx, plugin.Call("nn.Linear", ...)), nil
//	    },
//	}
package plugin
