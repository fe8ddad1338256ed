package torch

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/flowtorch/composer"
	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/graph"
	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/registry"
)

func generate(t *testing.T, p plugin.Plugin, nodeID string, raw map[string]any, children ...string) (string, *plugin.Context) {
	t.Helper()
	vr := p.Validate(raw)
	if !vr.Valid {
		t.Fatalf("%s: unexpected validation errors %v", p.Definition().Slug, vr.Errors)
	}
	ctx := &plugin.Context{NodeID: nodeID, Variable: plugin.VariableFor(vr.Settings, nodeID)}
	out, err := p.Generate(vr.Settings, children, ctx)
	if err != nil {
		t.Fatalf("%s: Generate: %v", p.Definition().Slug, err)
	}
	return out, ctx
}

func TestRegister(t *testing.T) {
	reg := registry.NewLocal()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Len() != len(Plugins()) {
		t.Errorf("expected %d plugins, got %d", len(Plugins()), reg.Len())
	}
	for _, typ := range []string{"linear", "@torch/conv2d", "@torch/sequential:1.0.0", "end"} {
		if _, err := reg.Resolve(context.Background(), typ); err != nil {
			t.Errorf("Resolve(%s): %v", typ, err)
		}
	}
	if err := Register(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestLayers_Defaults(t *testing.T) {
	tests := []struct {
		p    plugin.Plugin
		raw  map[string]any
		want string
	}{
		{Linear(), map[string]any{"inFeatures": 4, "outFeatures": 8}, "fc = nn.Linear(4, 8)"},
		{Linear(), map[string]any{"inFeatures": 4, "outFeatures": 8, "bias": false, "emitVariable": false}, "nn.Linear(4, 8, bias=False)"},
		{Conv2d(), map[string]any{"inChannels": 3, "outChannels": 16}, "fc = nn.Conv2d(3, 16, kernel_size=3, stride=1, padding=0)"},
		{Conv2d(), map[string]any{"inChannels": 3, "outChannels": 16, "kernelSize": []any{3, 5}}, "fc = nn.Conv2d(3, 16, kernel_size=(3, 5), stride=1, padding=0)"},
		{ReLU(), map[string]any{"emitVariable": false}, "nn.ReLU()"},
		{ReLU(), map[string]any{"inplace": true, "variableName": "act"}, "act = nn.ReLU(inplace=True)"},
		{Dropout(), nil, "fc = nn.Dropout(p=0.5)"},
		{BatchNorm2d(), map[string]any{"numFeatures": 16}, "fc = nn.BatchNorm2d(16, eps=1e-05, momentum=0.1)"},
		{Flatten(), nil, "fc = nn.Flatten(start_dim=1, end_dim=-1)"},
		{MaxPool2d(), nil, "fc = nn.MaxPool2d(kernel_size=2)"},
		{MaxPool2d(), map[string]any{"stride": []any{2}}, "fc = nn.MaxPool2d(kernel_size=2, stride=2)"},
		{Input(), map[string]any{"shape": []any{1, 3, 32, 32}}, "fc = torch.randn(1, 3, 32, 32)"},
		{Loss(), nil, `fc = nn.CrossEntropyLoss(reduction="mean")`},
		{Optimizer(), map[string]any{"kind": "SGD", "lr": 0.01, "momentum": 0.9}, "fc = torch.optim.SGD(model.parameters(), lr=0.01, momentum=0.9)"},
	}
	for _, tt := range tests {
		t.Run(tt.p.Definition().Slug, func(t *testing.T) {
			if got, _ := generate(t, tt.p, "fc", tt.raw); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkersEmitNothing(t *testing.T) {
	for _, p := range []plugin.Plugin{Start(), End()} {
		if got, _ := generate(t, p, "m", nil); got != "" {
			t.Errorf("%s: expected no code, got %q", p.Definition().Slug, got)
		}
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		p     plugin.Plugin
		raw   map[string]any
		field string
	}{
		{"negative channels", Conv2d(), map[string]any{"inChannels": -1, "outChannels": 16}, "inChannels"},
		{"missing features", Linear(), map[string]any{"inFeatures": 4}, "outFeatures"},
		{"kernel too long", Conv2d(), map[string]any{"inChannels": 1, "outChannels": 1, "kernelSize": []any{1, 2, 3}}, "kernelSize"},
		{"dropout above one", Dropout(), map[string]any{"p": 1.5}, "p"},
		{"unknown loss", Loss(), map[string]any{"kind": "HingeLoss"}, "kind"},
		{"zero lr", Optimizer(), map[string]any{"lr": 0.0}, "lr"},
		{"adam momentum", Optimizer(), map[string]any{"kind": "Adam", "momentum": 0.9}, "momentum"},
		{"empty shape", Input(), map[string]any{"shape": []any{}}, "shape"},
		{"zero dimension", Input(), map[string]any{"shape": []any{1, 0}}, "shape"},
		{"bad class name", Module(), map[string]any{"className": "net"}, "className"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vr := tt.p.Validate(tt.raw)
			if vr.Valid {
				t.Fatal("expected validation to fail")
			}
			found := false
			for _, e := range vr.Errors {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, vr.Errors)
			}
		})
	}
}

func TestSequential_StripsChildAssignments(t *testing.T) {
	got, _ := generate(t, Sequential(), "seq", nil, "linear_1 = nn.Linear(4, 8)", "nn.ReLU()")
	if want := "seq = nn.Sequential(nn.Linear(4, 8), nn.ReLU())"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSequential_RejectsMultilineChild(t *testing.T) {
	vr := Sequential().Validate(nil)
	_, err := Sequential().Generate(vr.Settings, []string{"class A:\n    pass\n\na = A()"}, &plugin.Context{NodeID: "s"})
	if err == nil {
		t.Fatal("expected error for multi-line child")
	}
}

func TestModule_AutoForward(t *testing.T) {
	got, _ := generate(t, Module(), "net", nil, "conv = nn.Conv2d(1, 4, kernel_size=3)", "nn.ReLU()")
	want := strings.Join([]string{
		"class Net(nn.Module):",
		"    def __init__(self):",
		"        super().__init__()",
		"        self.conv = nn.Conv2d(1, 4, kernel_size=3)",
		"        self.layer2 = nn.ReLU()",
		"",
		"    def forward(self, x):",
		"        x = self.conv(x)",
		"        x = self.layer2(x)",
		"        return x",
		"",
		"net = Net()",
	}, "\n")
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
	if name, ok := plugin.AssignedVariable(got); !ok || name != "net" {
		t.Errorf("expected module instance variable, got %q", name)
	}
}

func TestModule_CustomForward(t *testing.T) {
	forward := `
    h = conv(x)
    if h.dim() > 2:
        h = torch.flatten(h, 1)
    return layer2(h) + self.conv(x)
`
	got, _ := generate(t, Module(), "net", map[string]any{"forward": forward, "className": "Block", "emitVariable": false},
		"conv = nn.Conv2d(1, 4, kernel_size=3)", "nn.ReLU()")
	for _, line := range []string{
		"        h = self.conv(x)",
		"        if h.dim() > 2:",
		"            h = torch.flatten(h, 1)",
		"        return self.layer2(h) + self.conv(x)",
	} {
		if !strings.Contains(got, line+"\n") && !strings.HasSuffix(got, line) {
			t.Errorf("missing line %q in\n%s", line, got)
		}
	}
	if strings.Contains(got, "Block()") {
		t.Error("expected no instance without emitVariable")
	}
}

func TestModule_UndefinedQualifiedLayer(t *testing.T) {
	p := Module()
	vr := p.Validate(map[string]any{"forward": "x = self.layer1(x)\nreturn self.layer3(x)"})
	_, err := p.Generate(vr.Settings, []string{"nn.ReLU()"}, &plugin.Context{NodeID: "net", Variable: "net"})
	if !errors.Is(err, errors.ErrCodeUndefinedScopedVariable) {
		t.Fatalf("expected UNDEFINED_SCOPED_VARIABLE, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["line"] != 2 {
		t.Errorf("expected line 2, got %v", appErr.Details["line"])
	}
}

func TestModule_FreeLayerWarns(t *testing.T) {
	_, ctx := generate(t, Module(), "net", map[string]any{"forward": "return layer7(x)"}, "nn.ReLU()")
	warnings := ctx.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "layer7") {
		t.Errorf("expected a warning about layer7, got %v", warnings)
	}
}

func TestDedent(t *testing.T) {
	in := "\n    a = 1\n\n      b = 2\n    return a\n"
	if got := dedent(in); got != "a = 1\n\n  b = 2\nreturn a" {
		t.Errorf("got %q", got)
	}
	if got := dedent("  "); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestComposedNetwork(t *testing.T) {
	reg := registry.NewLocal()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	g := &graph.Graph{
		Nodes: []graph.Node{
			{ID: "start", Type: "start"},
			{ID: "fc1", Type: "linear", Settings: map[string]any{"inFeatures": 4, "outFeatures": 8, "emitVariable": false}},
			{ID: "act", Type: "relu", Settings: map[string]any{"emitVariable": false}},
			{ID: "fc2", Type: "linear", Settings: map[string]any{"inFeatures": 8, "outFeatures": 2, "emitVariable": false}},
			{ID: "model", Type: "sequential"},
			{ID: "opt", Type: "optimizer", Settings: map[string]any{"lr": 0.01}},
			{ID: "end", Type: "end"},
		},
		Edges: []graph.Edge{
			{ID: "e0", Source: "start", Target: "fc1"},
			{ID: "e1", Source: "fc1", Target: "model"},
			{ID: "e2", Source: "act", Target: "model"},
			{ID: "e3", Source: "fc2", Target: "model"},
			{ID: "e4", Source: "model", Target: "opt"},
			{ID: "e5", Source: "opt", Target: "end"},
		},
	}
	res, err := graph.Resolve(g, graph.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	art, err := composer.New(reg, composer.Options{}, nil).Compose(context.Background(), res, "end")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := strings.Join([]string{
		"import torch",
		"import torch.nn as nn",
		"",
		"model = nn.Sequential(nn.Linear(4, 8), nn.ReLU(), nn.Linear(8, 2))",
		"opt = torch.optim.Adam(model.parameters(), lr=0.01)",
		"",
	}, "\n")
	if art.Code != want {
		t.Errorf("got\n%s\nwant\n%s", art.Code, want)
	}
}

func composeEnd(t *testing.T, nodes []graph.Node, edges ...[2]string) string {
	t.Helper()
	reg := registry.NewLocal()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	g := &graph.Graph{Nodes: nodes}
	for i, e := range edges {
		g.Edges = append(g.Edges, graph.Edge{ID: fmt.Sprintf("e%d", i), Source: e[0], Target: e[1]})
	}
	res, err := graph.Resolve(g, graph.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	art, err := composer.New(reg, composer.Options{}, nil).Compose(context.Background(), res, "end")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	return art.Code
}

func TestModule_WithoutVariableKeepsBlankLine(t *testing.T) {
	got, _ := generate(t, Module(), "net", map[string]any{"emitVariable": false}, "fc1 = nn.Linear(4, 8)")
	if !strings.HasSuffix(got, "        return x\n") {
		t.Errorf("expected class to end with a newline, got %q", got)
	}

	code := composeEnd(t, []graph.Node{
		{ID: "fc1", Type: "linear", Settings: map[string]any{"inFeatures": 4, "outFeatures": 8}},
		{ID: "net", Type: "module", Settings: map[string]any{"emitVariable": false}},
		{ID: "opt", Type: "optimizer", Settings: map[string]any{"lr": 0.01}},
		{ID: "end", Type: "end"},
	}, [2]string{"fc1", "net"}, [2]string{"net", "opt"}, [2]string{"opt", "end"})
	want := strings.Join([]string{
		"import torch",
		"import torch.nn as nn",
		"",
		"class Net(nn.Module):",
		"    def __init__(self):",
		"        super().__init__()",
		"        self.fc1 = nn.Linear(4, 8)",
		"",
		"    def forward(self, x):",
		"        x = self.fc1(x)",
		"        return x",
		"",
		"opt = torch.optim.Adam(model.parameters(), lr=0.01)",
		"",
	}, "\n")
	if code != want {
		t.Errorf("got\n%s\nwant\n%s", code, want)
	}
}

func TestModule_SharedChildIsNotReferencedAtTopLevel(t *testing.T) {
	code := composeEnd(t, []graph.Node{
		{ID: "fc1", Type: "linear", Settings: map[string]any{"inFeatures": 4, "outFeatures": 8}},
		{ID: "model", Type: "module"},
		{ID: "opt", Type: "optimizer", Settings: map[string]any{"lr": 0.01}},
		{ID: "end", Type: "end"},
	}, [2]string{"fc1", "model"}, [2]string{"fc1", "opt"}, [2]string{"model", "end"}, [2]string{"opt", "end"})

	if strings.Contains(code, "fc1.parameters()") {
		t.Errorf("optimizer references the absorbed layer:\n%s", code)
	}
	if !strings.Contains(code, "        self.fc1 = nn.Linear(4, 8)\n") {
		t.Errorf("expected fc1 inside the module:\n%s", code)
	}
	if !strings.Contains(code, "model = Net()\nopt = torch.optim.Adam(model.parameters(), lr=0.01)\n") {
		t.Errorf("expected optimizer over the module:\n%s", code)
	}
}
