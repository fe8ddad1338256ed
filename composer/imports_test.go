package composer

import (
	"strings"
	"testing"

	"github.com/kbukum/flowtorch/plugin"
)

func TestImportSet_Lines(t *testing.T) {
	s := NewImportSet()
	s.Add(
		plugin.Import{Path: "torch.nn", Alias: map[string]string{"torch.nn": "nn"}},
		plugin.Import{Path: "torch"},
		plugin.Import{Path: "torch.optim", Items: []string{"SGD", "Adam"}},
		plugin.Import{Path: "torch.nn", Alias: map[string]string{"torch.nn": "nn"}},
		plugin.Import{Path: "torch.optim", Items: []string{"Adam"}},
		plugin.Import{Path: "numpy", Alias: map[string]string{"numpy": "np"}},
		plugin.Import{Path: "collections", Items: []string{"OrderedDict"}, Alias: map[string]string{"OrderedDict": "OD"}},
		plugin.Import{Path: "  "},
	)
	want := []string{
		"import numpy as np",
		"import torch",
		"import torch.nn as nn",
		"from collections import OrderedDict as OD",
		"from torch.optim import Adam, SGD",
	}
	got := s.Lines()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestImportSet_Idempotent(t *testing.T) {
	imports := []plugin.Import{
		{Path: "torch"},
		{Path: "torch.nn", Items: []string{"functional"}, Alias: map[string]string{"functional": "F"}},
		{Path: "torch.nn", Alias: map[string]string{"torch.nn": "nn"}},
	}
	once := NewImportSet()
	once.Add(imports...)
	twice := NewImportSet()
	twice.Add(imports...)
	twice.Add(imports...)
	if once.Render() != twice.Render() {
		t.Errorf("aggregation not idempotent:\n%s\nvs\n%s", once.Render(), twice.Render())
	}

	merged := NewImportSet()
	merged.Merge(once)
	merged.Merge(twice)
	if merged.Render() != once.Render() {
		t.Errorf("merge not idempotent:\n%s", merged.Render())
	}
}

func TestImportSet_AliasEqualToName(t *testing.T) {
	s := NewImportSet()
	s.Add(plugin.Import{Path: "torch", Alias: map[string]string{"torch": "torch"}}, plugin.Import{Path: "torch"})
	if got := s.Render(); got != "import torch" {
		t.Errorf("got %q", got)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 line, got %d", s.Len())
	}
}

func TestImportSet_Empty(t *testing.T) {
	if got := NewImportSet().Render(); got != "" {
		t.Errorf("expected empty header, got %q", got)
	}
}
