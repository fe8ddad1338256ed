package plugin

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/kbukum/flowtorch/validation"
)

var patternCache sync.Map // pattern string -> *regexp.Regexp

func compiledPattern(p string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	patternCache.Store(p, re)
	return re, nil
}

// ValidateSettings checks raw settings against the fields of def and
// returns a normalized copy: defaults filled in, strings trimmed and
// integral numbers coerced to int for int fields. raw is never modified.
// Keys without a schema entry are passed through unchanged.
func ValidateSettings(def *Definition, raw any) ValidationResult {
	v := validation.New()

	var in map[string]any
	switch t := raw.(type) {
	case nil:
		in = map[string]any{}
	case map[string]any:
		in = t
	case Settings:
		in = t
	default:
		v.AddError("settings", fmt.Sprintf("must be an object, got %s", describe(raw)))
		return ValidationResult{Valid: false, Errors: v.Errors()}
	}

	out := make(Settings, len(in)+len(def.Fields))
	for k, val := range in {
		out[k] = val
	}

	for i := range def.Fields {
		f := &def.Fields[i]
		val, ok := in[f.Key]
		if !ok || val == nil {
			switch {
			case f.Default != nil:
				out[f.Key] = cloneValue(f.Default)
			case f.Required:
				v.AddError(f.Key, "is required")
			default:
				delete(out, f.Key)
			}
			continue
		}
		if norm, ok := checkField(f, val, v); ok {
			out[f.Key] = norm
		}
	}

	if v.HasErrors() {
		return ValidationResult{Valid: false, Errors: v.Errors()}
	}
	return ValidationResult{Valid: true, Settings: out}
}

// checkField validates one present value and returns its normalized form.
func checkField(f *Field, val any, v *validation.Validator) (any, bool) {
	before := len(v.Errors())
	var norm any

	switch f.Type {
	case TypeString, TypeEnum:
		s, ok := val.(string)
		if !ok {
			v.AddError(f.Key, "must be a string, got "+describe(val))
			return nil, false
		}
		s = strings.TrimSpace(s)
		if f.Required && s == "" {
			v.AddError(f.Key, "is required")
			return nil, false
		}
		if f.MinLength > 0 {
			v.MinLength(f.Key, s, f.MinLength)
		}
		if f.Type == TypeEnum || len(f.Enum) > 0 {
			v.OneOf(f.Key, s, f.Enum)
		}
		if f.Pattern != "" {
			re, err := compiledPattern(f.Pattern)
			if err != nil {
				v.AddError(f.Key, "has an invalid pattern in its schema")
			} else {
				v.Pattern(f.Key, s, re)
			}
		}
		norm = s

	case TypeInt:
		i, ok := toInt(val)
		if !ok {
			v.AddError(f.Key, "must be an integer, got "+describe(val))
			return nil, false
		}
		checkRange(f, float64(i), v)
		norm = i

	case TypeFloat:
		n, ok := toFloat(val)
		if !ok {
			v.AddError(f.Key, "must be a number, got "+describe(val))
			return nil, false
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			v.AddError(f.Key, "must be a finite number")
			return nil, false
		}
		checkRange(f, n, v)
		norm = n

	case TypeBool:
		b, ok := val.(bool)
		if !ok {
			v.AddError(f.Key, "must be a boolean, got "+describe(val))
			return nil, false
		}
		norm = b

	case TypeList:
		list, ok := val.([]any)
		if !ok {
			v.AddError(f.Key, "must be a list, got "+describe(val))
			return nil, false
		}
		if f.Min != nil {
			v.MinItems(f.Key, len(list), int(*f.Min))
		}
		if f.Max != nil {
			v.MaxItems(f.Key, len(list), int(*f.Max))
		}
		items := make([]any, len(list))
		for i, item := range list {
			items[i] = checkItem(f, i, item, v)
		}
		norm = items

	case TypeObject:
		m, ok := val.(map[string]any)
		if !ok {
			v.AddError(f.Key, "must be an object, got "+describe(val))
			return nil, false
		}
		norm = m

	default:
		v.AddError(f.Key, fmt.Sprintf("has unknown schema type %q", f.Type))
		return nil, false
	}

	return norm, len(v.Errors()) == before
}

func checkItem(f *Field, i int, item any, v *validation.Validator) any {
	key := fmt.Sprintf("%s[%d]", f.Key, i)
	switch f.Items {
	case TypeInt:
		n, ok := toInt(item)
		if !ok {
			v.AddError(key, "must be an integer, got "+describe(item))
			return item
		}
		return n
	case TypeFloat:
		n, ok := toFloat(item)
		if !ok {
			v.AddError(key, "must be a number, got "+describe(item))
			return item
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			v.AddError(key, "must be a finite number")
		}
		return n
	case TypeString:
		s, ok := item.(string)
		if !ok {
			v.AddError(key, "must be a string, got "+describe(item))
			return item
		}
		return strings.TrimSpace(s)
	case TypeBool:
		if _, ok := item.(bool); !ok {
			v.AddError(key, "must be a boolean, got "+describe(item))
		}
		return item
	default:
		return item
	}
}

func checkRange(f *Field, n float64, v *validation.Validator) {
	switch {
	case f.Min != nil && f.Max != nil:
		v.Range(f.Key, n, *f.Min, *f.Max)
	case f.Min != nil:
		v.Min(f.Key, n, *f.Min)
	case f.Max != nil:
		v.Max(f.Key, n, *f.Max)
	}
}

// cloneValue copies list and object defaults so normalized settings never
// share them with the definition.
func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
