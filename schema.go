package mlapi

import (
	"reflect"
	"strconv"
	"strings"
	"time"
)

// JSONSchema represents a JSON Schema object (subset for OpenAPI 3.1).
type JSONSchema struct {
	Type        string                `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string                `json:"format,omitempty" yaml:"format,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty" yaml:"items,omitempty"`
	Required    []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty" yaml:"enum,omitempty"`

	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinItems  *int     `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems  *int     `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`

	// AdditionalProperties can be true (any) or a schema.
	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// typeToSchema converts a reflect.Type to a JSONSchema.
func typeToSchema(t reflect.Type) JSONSchema {
	return schemaOf(t, map[reflect.Type]bool{})
}

// schemaOf tracks the structs being expanded so recursive types
// terminate as an untyped object.
func schemaOf(t reflect.Type, seen map[reflect.Type]bool) JSONSchema {
	if t.Kind() == reflect.Pointer {
		return schemaOf(t.Elem(), seen)
	}

	switch t {
	case reflect.TypeFor[time.Time]():
		return JSONSchema{Type: "string", Format: "date-time"}
	case reflect.TypeFor[time.Duration]():
		return JSONSchema{Type: "string", Format: "duration"}
	case reflect.TypeFor[Void](), reflect.TypeFor[Body]():
		return JSONSchema{}
	case reflect.TypeFor[Upload](), reflect.TypeFor[RawBody]():
		return JSONSchema{Type: "string", Format: "binary"}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", Format: "byte"}
		}
		items := schemaOf(t.Elem(), seen)
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Array:
		items := schemaOf(t.Elem(), seen)
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		if t.Elem().Kind() == reflect.Interface {
			return JSONSchema{Type: "object"}
		}
		valSchema := schemaOf(t.Elem(), seen)
		return JSONSchema{Type: "object", AdditionalProperties: &valSchema}
	case reflect.Struct:
		if seen[t] {
			return JSONSchema{Type: "object"}
		}
		seen[t] = true
		defer delete(seen, t)
		return structToSchema(t, seen)
	default:
		return JSONSchema{}
	}
}

// structToSchema converts a struct type to a JSONSchema with properties.
func structToSchema(t reflect.Type, seen map[reflect.Type]bool) JSONSchema {
	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || isRequestParam(f) {
			continue
		}

		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		prop := schemaOf(f.Type, seen)
		if doc := f.Tag.Get("doc"); doc != "" {
			prop.Description = doc
		}
		applyConstraintTags(&prop, f.Tag)
		schema.Properties[name] = prop

		if f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

// applyConstraintTags copies the validation tags enforced by Schema into
// the generated schema.
func applyConstraintTags(s *JSONSchema, tag reflect.StructTag) {
	intTag := func(key string) *int {
		if n, err := strconv.Atoi(tag.Get(key)); err == nil {
			return &n
		}
		return nil
	}
	floatTag := func(key string) *float64 {
		if n, err := strconv.ParseFloat(tag.Get(key), 64); err == nil {
			return &n
		}
		return nil
	}

	s.MinLength = intTag("minLength")
	s.MaxLength = intTag("maxLength")
	s.MinItems = intTag("minItems")
	s.MaxItems = intTag("maxItems")
	s.Minimum = floatTag("minimum")
	s.Maximum = floatTag("maximum")
	if p := tag.Get("pattern"); p != "" {
		s.Pattern = p
	}
	if e := tag.Get("enum"); e != "" {
		s.Enum = strings.Split(e, ",")
	}
}
