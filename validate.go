package mlapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// SelfValidator is implemented by request types that validate themselves.
type SelfValidator interface {
	Validate() error
}

// Validator validates any request.
type Validator interface {
	Validate(req any) error
}

// Schema validates raw JSON into instances of one struct type.
type Schema struct {
	typ reflect.Type // struct type, never a pointer
}

var schemaCache sync.Map // reflect.Type → *Schema

// SchemaOf returns the schema for t, which must be a struct or a pointer
// to one.
func SchemaOf(t reflect.Type) *Schema {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := schemaCache.Load(t); ok {
		return s.(*Schema)
	}
	s, _ := schemaCache.LoadOrStore(t, &Schema{typ: t})
	return s.(*Schema)
}

// SchemaFor returns the schema for T.
func SchemaFor[T any]() *Schema {
	return SchemaOf(reflect.TypeFor[T]())
}

// Type returns the struct type validated by the schema.
func (s *Schema) Type() reflect.Type { return s.typ }

// Validate decodes raw into a new instance and checks it. On success the
// result is a pointer to the struct type. Failures are a *ProblemDetail
// with status 422.
func (s *Schema) Validate(raw []byte) (any, error) {
	v := reflect.New(s.typ)

	// Unmarshal rejects trailing data after the document.
	if err := json.Unmarshal(raw, v.Interface()); err != nil {
		return nil, validationFailed(fmt.Sprintf("invalid JSON: %v", err))
	}

	var errs []ValidationError
	var doc json.RawMessage = raw
	collectRequiredErrors(s.typ, doc, "", &errs)
	collectConstraintErrors(v.Elem(), "", false, &errs)
	if len(errs) > 0 {
		return nil, validationFailed(fmt.Sprintf("%d constraint violation(s)", len(errs)), errs...)
	}

	if sv, ok := v.Interface().(SelfValidator); ok {
		if err := sv.Validate(); err != nil {
			var pd *ProblemDetail
			if errors.As(err, &pd) {
				return nil, pd
			}
			return nil, validationFailed(err.Error())
		}
	}

	return v.Interface(), nil
}

// collectRequiredErrors reports fields tagged required:"true" that are
// missing or null in doc, recursing into nested objects.
func collectRequiredErrors(t reflect.Type, doc json.RawMessage, prefix string, errs *[]ValidationError) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return
	}
	requiredInObject(t, fields, prefix, errs)
}

// requiredInObject checks the fields of t against one decoded object.
// Embedded structs share their parent's object.
func requiredInObject(t reflect.Type, fields map[string]json.RawMessage, prefix string, errs *[]ValidationError) {
	for i := range t.NumField() {
		f := t.Field(i)
		if et, ok := promotedStruct(f); ok {
			requiredInObject(et, fields, prefix, errs)
			continue
		}
		if !f.IsExported() || isRequestParam(f) {
			continue
		}
		name := jsonFieldName(f)
		if name == "-" {
			continue
		}
		path := joinPath(prefix, name)

		raw, present := lookupKey(fields, name)
		if !present || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if f.Tag.Get("required") == "true" {
				*errs = append(*errs, ValidationError{Field: path, Message: "is required"})
			}
			continue
		}

		if isSchemaType(f.Type) {
			collectRequiredErrors(f.Type, raw, path, errs)
		}
	}
}

// lookupKey finds the object member for a field name the way
// encoding/json matches keys: exactly first, then case-insensitively.
func lookupKey(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if raw, ok := fields[name]; ok {
		return raw, true
	}
	for key, raw := range fields {
		if strings.EqualFold(key, name) {
			return raw, true
		}
	}
	return nil, false
}
