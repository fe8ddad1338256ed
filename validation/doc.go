// Package validation provides the field error collector used by plugin
// settings validation and a go-playground struct validator for request and
// configuration structs.
//
// # Struct Tag Validation
//
//	type Request struct {
//	    Nodes []Node `json:"nodes" validate:"required,min=1,dive"`
//	}
//	err := validation.Validate(req)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Min("inFeatures", 0, 1).OneOf("reduction", "avg", []string{"mean", "sum"})
//	if v.HasErrors() { ... }
package validation
