package composer

import (
	"sort"
	"strings"

	"github.com/kbukum/flowtorch/plugin"
)

// ImportSet aggregates import declarations. Adding the same declaration
// any number of times renders the same lines.
type ImportSet struct {
	// modules maps "import path [as alias]" to its aliases; "" means none.
	modules map[string]map[string]struct{}
	// from maps "from path import item [as alias]" to item aliases.
	from map[string]map[string]map[string]struct{}
}

// NewImportSet returns an empty set.
func NewImportSet() *ImportSet {
	return &ImportSet{
		modules: make(map[string]map[string]struct{}),
		from:    make(map[string]map[string]map[string]struct{}),
	}
}

// Add merges imports into the set. Declarations without a path are
// ignored.
func (s *ImportSet) Add(imports ...plugin.Import) {
	for _, imp := range imports {
		path := strings.TrimSpace(imp.Path)
		if path == "" {
			continue
		}
		if len(imp.Items) == 0 {
			addAlias(s.modules, path, imp.Alias[imp.Path])
			continue
		}
		items := s.from[path]
		if items == nil {
			items = make(map[string]map[string]struct{})
			s.from[path] = items
		}
		for _, item := range imp.Items {
			if item = strings.TrimSpace(item); item != "" {
				addAlias(items, item, imp.Alias[item])
			}
		}
	}
}

func addAlias(m map[string]map[string]struct{}, key, alias string) {
	aliases := m[key]
	if aliases == nil {
		aliases = make(map[string]struct{})
		m[key] = aliases
	}
	alias = strings.TrimSpace(alias)
	if alias == key {
		alias = ""
	}
	aliases[alias] = struct{}{}
}

// Merge adds every declaration of o.
func (s *ImportSet) Merge(o *ImportSet) {
	for path, aliases := range o.modules {
		for alias := range aliases {
			addAlias(s.modules, path, alias)
		}
	}
	for path, items := range o.from {
		for item, aliases := range items {
			for alias := range aliases {
				s.Add(plugin.Import{Path: path, Items: []string{item}, Alias: map[string]string{item: alias}})
			}
		}
	}
}

// Len returns the number of rendered lines.
func (s *ImportSet) Len() int {
	return len(s.Lines())
}

// Lines renders the set: sorted "import" statements first, then sorted
// "from ... import" statements with their names sorted.
func (s *ImportSet) Lines() []string {
	var lines []string
	for _, path := range sortedKeys(s.modules) {
		for _, alias := range sortedKeys(s.modules[path]) {
			if alias == "" {
				lines = append(lines, "import "+path)
			} else {
				lines = append(lines, "import "+path+" as "+alias)
			}
		}
	}

	for _, path := range sortedKeys(s.from) {
		var names []string
		for _, item := range sortedKeys(s.from[path]) {
			for _, alias := range sortedKeys(s.from[path][item]) {
				if alias == "" {
					names = append(names, item)
				} else {
					names = append(names, item+" as "+alias)
				}
			}
		}
		lines = append(lines, "from "+path+" import "+strings.Join(names, ", "))
	}
	return lines
}

// Render returns the import header without a trailing newline.
func (s *ImportSet) Render() string {
	return strings.Join(s.Lines(), "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
