package util

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ValidationError describes a parameter that does not satisfy a tool schema.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema creates a JSON schema from a Go struct using reflection.
//
// Supported struct tags: json (name, omitempty), description and default.
// Fields without omitempty that are not pointers are required.
func CreateSchema(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	properties := make(map[string]any)
	required := make([]string, 0)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := field.Name
		if n, _, _ := strings.Cut(jsonTag, ","); n != "" {
			name = n
		}

		typ := jsonType(field.Type)
		prop := map[string]any{"type": typ}
		if d := field.Tag.Get("description"); d != "" {
			prop["description"] = d
		}
		if d, ok := field.Tag.Lookup("default"); ok {
			if v, err := Coerce(d, typ); err == nil {
				prop["default"] = v
			}
		}
		properties[name] = prop

		if !hasOmitEmpty(jsonTag) && field.Type.Kind() != reflect.Ptr {
			required = append(required, name)
		}
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// RequiredFields returns the required property names declared by schema in
// declaration order. Both []string and []any encodings are accepted.
func RequiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// PropertyType returns the declared JSON type of a property, or "".
func PropertyType(schema map[string]any, field string) string {
	prop := property(schema, field)
	t, _ := prop["type"].(string)
	return t
}

// ResolveParameters returns a copy of params completed against schema.
//
// In lenient mode missing required fields are filled with the property's
// default or the zero value of its type, and string values are coerced to
// the declared scalar type when possible. In strict mode a missing required
// field is reported as a ValidationError. The result is always validated.
func ResolveParameters(params map[string]any, schema map[string]any, strict bool) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	for _, field := range RequiredFields(schema) {
		if _, ok := out[field]; ok {
			continue
		}
		if strict {
			return nil, &ValidationError{Field: field, Message: "required field is missing"}
		}
		prop := property(schema, field)
		if d, ok := prop["default"]; ok {
			out[field] = d
			continue
		}
		out[field] = ZeroValue(PropertyType(schema, field))
	}

	if !strict {
		for field, v := range out {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if c, err := Coerce(s, PropertyType(schema, field)); err == nil {
				out[field] = c
			}
		}
	}

	if err := ValidateParameters(out, schema); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateParameters validates parameters against a JSON schema.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, field := range RequiredFields(schema) {
		if _, exists := params[field]; !exists {
			return &ValidationError{Field: field, Message: "required field is missing"}
		}
	}

	for field, value := range params {
		expected := PropertyType(schema, field)
		if expected == "" {
			continue // extra fields are allowed
		}
		if !isValidType(value, expected) {
			return &ValidationError{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", expected, value),
			}
		}
	}
	return nil
}

// ZeroValue returns the zero value for a JSON schema type.
func ZeroValue(typ string) any {
	switch typ {
	case "integer":
		return 0
	case "number":
		return float64(0)
	case "boolean":
		return false
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return ""
	}
}

// Coerce converts s to the scalar JSON schema type typ.
func Coerce(s string, typ string) (any, error) {
	s = strings.TrimSpace(s)
	switch typ {
	case "integer":
		if i, err := strconv.Atoi(s); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != float64(int64(f)) {
			return nil, fmt.Errorf("not an integer: %q", s)
		}
		return int(f), nil
	case "number":
		return strconv.ParseFloat(s, 64)
	case "boolean":
		return strconv.ParseBool(s)
	case "string", "":
		return s, nil
	default:
		return nil, fmt.Errorf("cannot coerce to %s", typ)
	}
}

// Int reads an integer-like param, accepting the numeric types produced by
// JSON decoding.
func Int(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(v))
		return i
	}
	return 0
}

// String reads a string param, formatting non-string values.
func String(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func property(schema map[string]any, field string) map[string]any {
	properties, _ := schema["properties"].(map[string]any)
	prop, _ := properties[field].(map[string]any)
	return prop
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}

func hasOmitEmpty(tag string) bool {
	parts := strings.Split(tag, ",")
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			return true
		}
	}
	return false
}

func isValidType(value any, expectedType string) bool {
	if value == nil {
		return true
	}

	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // JSON decoding produces float64
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		switch value.(type) {
		case []any, []string:
			return true
		}
		return false
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
