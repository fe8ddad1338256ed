package plugin

import "testing"

func TestEmit(t *testing.T) {
	ctx := &Context{Variable: "conv_1"}
	tests := []struct {
		name string
		s    Settings
		want string
	}{
		{"bare", Settings{KeyEmitVariable: false}, "nn.ReLU()"},
		{"default name", Settings{KeyEmitVariable: true}, "conv_1 = nn.ReLU()"},
		{"custom name", Settings{KeyEmitVariable: true, KeyVariableName: "act"}, "act = nn.ReLU()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Emit(tt.s, ctx, "nn.ReLU()"); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
	if got := Emit(Settings{KeyEmitVariable: true}, nil, "e"); got != "e" {
		t.Errorf("expected bare expression without a name, got %q", got)
	}
}

func TestSplitAssignment(t *testing.T) {
	tests := []struct {
		in, name, expr string
		ok             bool
	}{
		{"fc = nn.Linear(4, 8)", "fc", "nn.Linear(4, 8)", true},
		{"nn.Linear(4, 8)", "", "nn.Linear(4, 8)", false},
		{"nn.Dropout(p=0.5)", "", "nn.Dropout(p=0.5)", false},
		{"a == b", "", "a == b", false},
		{"x <= y", "", "x <= y", false},
	}
	for _, tt := range tests {
		name, expr, ok := SplitAssignment(tt.in)
		if name != tt.name || expr != tt.expr || ok != tt.ok {
			t.Errorf("SplitAssignment(%q) = %q, %q, %v", tt.in, name, expr, ok)
		}
	}
}

func TestAssignedVariable(t *testing.T) {
	tests := []struct {
		in   string
		name string
		ok   bool
	}{
		{"fc = nn.Linear(4, 8)", "fc", true},
		{"nn.ReLU()", "", false},
		{"class Net(nn.Module):\n    def __init__(self):\n        self.fc = nn.Linear(4, 8)\n\nnet = Net()\n", "net", true},
		{"class Net(nn.Module):\n    def forward(self, x):\n        x = self.fc(x)\n", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		name, ok := AssignedVariable(tt.in)
		if name != tt.name || ok != tt.ok {
			t.Errorf("AssignedVariable(%q) = %q, %v", tt.in, name, ok)
		}
	}
}

func TestVarName(t *testing.T) {
	tests := map[string]string{
		"Conv-1":    "conv_1",
		"1layer":    "n_1layer",
		"--":        "node",
		"node_7":    "node_7",
		"dense.a b": "dense_a_b",
	}
	for in, want := range tests {
		if got := VarName(in); got != want {
			t.Errorf("VarName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := VariableFor(Settings{KeyVariableName: "x"}, "n1"); got != "x" {
		t.Errorf("expected explicit variable, got %q", got)
	}
	if got := VariableFor(Settings{}, "n-1"); got != "n_1" {
		t.Errorf("expected derived variable, got %q", got)
	}
}

func TestPyValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "None"},
		{true, "True"},
		{false, "False"},
		{"mean", `"mean"`},
		{3, "3"},
		{1.0, "1.0"},
		{0.001, "0.001"},
		{1e-05, "1e-05"},
		{[]any{1, 2.5, "a"}, `[1, 2.5, "a"]`},
		{map[string]any{"b": 1, "a": false}, `{"a": False, "b": 1}`},
	}
	for _, tt := range tests {
		if got := PyValue(tt.in); got != tt.want {
			t.Errorf("PyValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPyTupleAndCall(t *testing.T) {
	if got := PyTuple([]int{3, 3}); got != "(3, 3)" {
		t.Errorf("unexpected tuple %q", got)
	}
	if got := PyTuple([]int{5}); got != "5" {
		t.Errorf("unexpected scalar %q", got)
	}
	if got := Call("nn.Conv2d", "3", "16", Kwarg("stride", ""), Kwarg("padding", `"same"`)); got != `nn.Conv2d(3, 16, padding="same")` {
		t.Errorf("unexpected call %q", got)
	}
}
