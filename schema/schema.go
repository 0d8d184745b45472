package schema

import (
	"fmt"
	"reflect"
	"sort"
)

// JSON represents the subset of JSON Schema used to describe tool arguments.
type JSON struct {
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Properties  map[string]JSON `json:"properties,omitempty"`
	Required    []string        `json:"required,omitempty"`
	Items       *JSON           `json:"items,omitempty"`
	Enum        []any           `json:"enum,omitempty"`
	Default     any             `json:"default,omitempty"`
	MinLength   *int            `json:"minLength,omitempty"`
	MaxLength   *int            `json:"maxLength,omitempty"`
}

// String creates a JSON schema for a string type.
func String() JSON {
	return JSON{Type: "string"}
}

// StringWithDesc creates a JSON schema for a string type with a description.
func StringWithDesc(desc string) JSON {
	return JSON{
		Type:        "string",
		Description: desc,
	}
}

// Int creates a JSON schema for an integer type.
func Int() JSON {
	return JSON{Type: "integer"}
}

// Number creates a JSON schema for a number type.
func Number() JSON {
	return JSON{Type: "number"}
}

// Bool creates a JSON schema for a boolean type.
func Bool() JSON {
	return JSON{Type: "boolean"}
}

// Array creates a JSON schema for an array type with the specified item schema.
func Array(items JSON) JSON {
	return JSON{
		Type:  "array",
		Items: &items,
	}
}

// Object creates a JSON schema for an object type with the specified properties and required fields.
// A nil property map is replaced by an empty one.
func Object(properties map[string]JSON, required ...string) JSON {
	if properties == nil {
		properties = map[string]JSON{}
	}
	return JSON{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// Enum creates a JSON schema with enumerated values.
func Enum(values ...any) JSON {
	return JSON{Enum: values}
}

// WithDefault returns a copy of the schema carrying the given default value.
func (s JSON) WithDefault(v any) JSON {
	s.Default = v
	return s
}

// WithDescription returns a copy of the schema carrying the given description.
func (s JSON) WithDescription(desc string) JSON {
	s.Description = desc
	return s
}

// PropertyNames returns the object property names in lexical order.
func (s JSON) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyDefaults returns a shallow copy of args with every absent property that
// declares a default filled in. The input map is never modified; a nil map is
// treated as empty.
func (s JSON) ApplyDefaults(args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+len(s.Properties))
	for k, v := range args {
		out[k] = v
	}
	for name, prop := range s.Properties {
		if _, ok := out[name]; ok {
			continue
		}
		if prop.Default != nil {
			out[name] = prop.Default
		}
	}
	return out
}

// Validate validates the given value against this JSON schema.
// It returns an error if the value does not conform to the schema.
func (s JSON) Validate(value any) error {
	if value == nil {
		if s.Type != "" {
			return fmt.Errorf("expected type %s, got nil", s.Type)
		}
		return nil
	}

	if len(s.Enum) > 0 {
		return s.validateEnum(value)
	}

	if s.Type != "" {
		if err := s.validateType(value); err != nil {
			return err
		}
	}

	switch s.Type {
	case "string":
		return s.validateString(reflect.ValueOf(value).String())
	case "array":
		return s.validateArray(value)
	case "object":
		return s.validateObject(value)
	}

	return nil
}

// validateType checks if the value matches the expected type.
func (s JSON) validateType(value any) error {
	v := reflect.ValueOf(value)

	switch s.Type {
	case "string":
		if v.Kind() != reflect.String {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "integer":
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		case reflect.Float32, reflect.Float64:
			f := v.Float()
			if f != float64(int64(f)) {
				return fmt.Errorf("expected integer, got float with decimal: %v", value)
			}
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case "number":
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case "boolean":
		if v.Kind() != reflect.Bool {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "array":
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			return fmt.Errorf("expected array, got %T", value)
		}
	case "object":
		if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("expected object, got %T", value)
		}
	}

	return nil
}

// validateString validates string-specific constraints.
func (s JSON) validateString(str string) error {
	if s.MinLength != nil && len(str) < *s.MinLength {
		return fmt.Errorf("string length %d is less than minimum %d", len(str), *s.MinLength)
	}
	if s.MaxLength != nil && len(str) > *s.MaxLength {
		return fmt.Errorf("string length %d is greater than maximum %d", len(str), *s.MaxLength)
	}
	return nil
}

// validateArray validates every item against the item schema.
func (s JSON) validateArray(value any) error {
	if s.Items == nil {
		return nil
	}

	v := reflect.ValueOf(value)
	for i := 0; i < v.Len(); i++ {
		if err := s.Items.Validate(v.Index(i).Interface()); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}

	return nil
}

// validateObject checks required fields and declared properties. Undeclared
// properties are accepted and ignored.
func (s JSON) validateObject(value any) error {
	v := reflect.ValueOf(value)

	for _, req := range s.Required {
		if !mapIndex(v, req).IsValid() {
			return fmt.Errorf("required field %s is missing", req)
		}
	}

	// Properties are checked in lexical order.
	for _, name := range s.PropertyNames() {
		field := mapIndex(v, name)
		if !field.IsValid() {
			continue
		}
		if err := s.Properties[name].Validate(field.Interface()); err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
	}

	return nil
}

func mapIndex(m reflect.Value, key string) reflect.Value {
	return m.MapIndex(reflect.ValueOf(key).Convert(m.Type().Key()))
}

// validateEnum validates that the value is one of the allowed enum values.
func (s JSON) validateEnum(value any) error {
	for _, enumVal := range s.Enum {
		if reflect.DeepEqual(value, enumVal) {
			return nil
		}
	}
	return fmt.Errorf("value %v is not one of the allowed values: %v", value, s.Enum)
}
