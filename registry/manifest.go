package registry

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/flowtorch/plugin"
)

// ManifestFile is the object name of a published plugin version.
const ManifestFile = "plugin.yaml"

// Manifest is a declarative plugin published to storage. Template is a
// text/template rendering the fragment:
//
//	template: '{{ .Emit (pycall "nn.Linear" (.Py "inFeatures") (.Py "outFeatures")) }}'
type Manifest struct {
	plugin.Definition `yaml:",inline"`
	Template          string `yaml:"template"`
	// EmitVariable adds the emit-variable convention fields to the schema.
	EmitVariable *bool `yaml:"emitVariable,omitempty"`
}

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("registry: parsing manifest: %w", err)
	}
	if m.Slug == "" {
		return nil, fmt.Errorf("registry: manifest has no slug")
	}
	return &m, nil
}

var templateFuncs = template.FuncMap{
	"py":     plugin.PyValue,
	"join":   strings.Join,
	"kwarg":  plugin.Kwarg,
	"pycall": plugin.Call,
	"tuple":  tupleValue,
}

// tupleValue renders an integer list as a Python tuple and anything else
// as a plain literal.
func tupleValue(v any) string {
	s := plugin.Settings{"v": v}
	if list := s.Ints("v"); len(list) > 0 {
		return plugin.PyTuple(list)
	}
	return plugin.PyValue(v)
}

// Compile turns the manifest into a plugin. Templates run with
// missingkey=error so a typo in a settings key fails generation.
func (m *Manifest) Compile() (*plugin.Func, error) {
	tmpl, err := template.New(m.Slug).
		Funcs(templateFuncs).
		Option("missingkey=error").
		Parse(m.Template)
	if err != nil {
		return nil, fmt.Errorf("registry: manifest %s: %w", m.Ref(), err)
	}

	def := m.Definition
	if m.EmitVariable != nil {
		def.Fields = append(append([]plugin.Field(nil), def.Fields...), plugin.EmitFields(*m.EmitVariable)...)
	}

	return &plugin.Func{
		Def: &def,
		Gen: func(s plugin.Settings, children []string, ctx *plugin.Context) (string, error) {
			var buf bytes.Buffer
			data := &templateData{Settings: s, Children: children, ctx: ctx}
			if err := tmpl.Execute(&buf, data); err != nil {
				return "", err
			}
			return strings.TrimSpace(buf.String()), nil
		},
	}, nil
}

// templateData is the dot value of manifest templates.
type templateData struct {
	Settings plugin.Settings
	Children []string
	ctx      *plugin.Context
}

// Node returns the node id.
func (d *templateData) Node() string { return d.ctx.NodeID }

// Var returns the node's default variable name.
func (d *templateData) Var() string { return d.ctx.Variable }

// Input returns the i-th input variable or "x".
func (d *templateData) Input(i int) string { return d.ctx.Input(i, "x") }

// Py renders a settings value as a Python literal.
func (d *templateData) Py(key string) string { return plugin.PyValue(d.Settings[key]) }

// Emit applies the emit-variable convention to expr.
func (d *templateData) Emit(expr string) string { return plugin.Emit(d.Settings, d.ctx, expr) }
