package plugin

import (
	"time"
)

// FieldType is the value type of a settings field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeEnum   FieldType = "enum"
	TypeList   FieldType = "list"
	TypeObject FieldType = "object"
)

// Field describes one settings key. Min and Max bound numbers and list
// lengths.
type Field struct {
	Key         string    `json:"key" yaml:"key"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Min         *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64  `json:"max,omitempty" yaml:"max,omitempty"`
	Enum        []string  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Pattern     string    `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength   int       `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	// Items is the element type of list fields.
	Items FieldType `json:"items,omitempty" yaml:"items,omitempty"`
}

// Bound returns a pointer to f for use as Field.Min or Field.Max.
func Bound(f float64) *float64 { return &f }

// Handle is a declared input or output connection point.
type Handle struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Import is a module import required by generated code. Alias maps an
// imported item, or Path itself, to its local name.
type Import struct {
	Path  string            `json:"path" yaml:"path"`
	Items []string          `json:"items,omitempty" yaml:"items,omitempty"`
	Alias map[string]string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// Definition is the static metadata of a plugin. It is read-only once
// registered.
type Definition struct {
	Slug        string    `json:"slug" yaml:"slug"`
	Name        string    `json:"name" yaml:"name"`
	Namespace   string    `json:"namespace" yaml:"namespace"`
	Version     string    `json:"version" yaml:"version"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	Category    string    `json:"category,omitempty" yaml:"category,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Inputs      []Handle  `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs     []Handle  `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Fields      []Field   `json:"fields,omitempty" yaml:"fields,omitempty"`
	Emits       []string  `json:"emits,omitempty" yaml:"emits,omitempty"`
	Imports     []Import  `json:"imports,omitempty" yaml:"imports,omitempty"`
	// Structural plugins nest the fragments of their children instead of
	// letting them stand as top-level statements.
	Structural  bool `json:"structural,omitempty" yaml:"structural,omitempty"`
	MinChildren int  `json:"minChildren,omitempty" yaml:"minChildren,omitempty"`
}

// Ref returns the fully qualified reference of the definition.
func (d *Definition) Ref() Ref {
	return Ref{Namespace: d.Namespace, Name: d.Slug, Version: d.Version}
}

// Field returns the schema of key.
func (d *Definition) Field(key string) (*Field, bool) {
	for i := range d.Fields {
		if d.Fields[i].Key == key {
			return &d.Fields[i], true
		}
	}
	return nil, false
}
