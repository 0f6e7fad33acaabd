package mlapi

import (
	"reflect"
	"time"
)

// BodyKind tells the marshaler how to decode a body parameter.
type BodyKind string

// Body parameter kinds.
const (
	BodySchema BodyKind = "schema" // validated into a typed struct
	BodyJSON   BodyKind = "json"   // decoded as generic JSON
	BodyRaw    BodyKind = "raw"    // passed through as bytes
	BodyFile   BodyKind = "file"   // multipart file uploads
)

// Body marks a field that accepts any JSON document. The decoded value is
// whatever encoding/json produces for an empty interface.
type Body any

// RawBody marks a field that receives the request body untouched.
type RawBody []byte

// wholeRequest is the parameter name used when the request type itself is
// the body.
const wholeRequest = "body"

// BodyParam is one classified body parameter of a request type.
type BodyParam struct {
	Name   string
	Kind   BodyKind
	Schema *Schema // set for BodySchema

	// index locates the field in the request struct; nil means the
	// request value itself.
	index []int
	typ   reflect.Type
}

// Type returns the declared Go type of the parameter.
func (p BodyParam) Type() reflect.Type { return p.typ }

// BodyConfig is the ordered classification of a request type's body
// parameters, computed once per route.
type BodyConfig []BodyParam

// Lookup returns the parameter with the given name.
func (c BodyConfig) Lookup(name string) (BodyParam, bool) {
	for _, p := range c {
		if p.Name == name {
			return p, true
		}
	}
	return BodyParam{}, false
}

// Names returns the parameter names in order.
func (c BodyConfig) Names() []string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name
	}
	return names
}

// ParseSignature classifies the body parameters of a request type. It
// returns the body configuration and, separately, the names of the file
// upload parameters.
//
// Candidates are fields tagged body:"name", the field named Body and
// fields of type Upload. When the request has neither request parameters
// nor candidates, the request type itself is classified under the name
// "body".
func ParseSignature(t reflect.Type) (BodyConfig, []string) {
	if t == nil || t == reflect.TypeFor[Void]() {
		return nil, nil
	}

	if t.Kind() != reflect.Struct {
		return classifyWhole(t)
	}

	var (
		cfg       BodyConfig
		files     []string
		hasParams bool
	)
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if isRequestParam(f) {
			hasParams = true
			continue
		}

		name, ok := bodyParamName(f)
		if !ok {
			continue
		}
		kind, ok := classify(f.Type, f.Name)
		if !ok {
			continue
		}
		if kind == BodyFile {
			files = append(files, name)
			continue
		}

		p := BodyParam{Name: name, Kind: kind, index: f.Index, typ: f.Type}
		if kind == BodySchema {
			p.Schema = SchemaOf(f.Type)
		}
		cfg = append(cfg, p)
	}

	if !hasParams && len(cfg) == 0 && len(files) == 0 {
		return classifyWhole(t)
	}
	return cfg, files
}

func classifyWhole(t reflect.Type) (BodyConfig, []string) {
	kind, ok := classify(t, "")
	if !ok {
		return nil, nil
	}
	if kind == BodyFile {
		return nil, []string{"file"}
	}
	p := BodyParam{Name: wholeRequest, Kind: kind, typ: t}
	if kind == BodySchema {
		p.Schema = SchemaOf(t)
	}
	return BodyConfig{p}, nil
}

// classify applies the classification rules to a single declared type.
// goName is the Go field name, empty for the whole request.
func classify(t reflect.Type, goName string) (BodyKind, bool) {
	switch {
	case t == reflect.TypeFor[Upload]():
		return BodyFile, true
	case isSchemaType(t):
		return BodySchema, true
	case t == reflect.TypeFor[Body]():
		return BodyJSON, true
	case t == reflect.TypeFor[map[string]any]():
		return BodyJSON, true
	case goName == "Body" && t == reflect.TypeFor[any]():
		return BodyJSON, true
	case t == reflect.TypeFor[RawBody]():
		return BodyRaw, true
	default:
		return "", false
	}
}

func isSchemaType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	switch t {
	case reflect.TypeFor[time.Time](), reflect.TypeFor[Void](),
		reflect.TypeFor[RawRequest](), reflect.TypeFor[Upload]():
		return false
	}
	return true
}

// bodyParamName reports whether f is a body candidate and its parameter
// name.
func bodyParamName(f reflect.StructField) (string, bool) {
	if name := f.Tag.Get("body"); name != "" {
		return name, true
	}
	if f.Type == reflect.TypeFor[Upload]() {
		if name, _ := tagOptions(f.Tag.Get("form")); name != "" {
			return name, true
		}
		return jsonFieldName(f), true
	}
	if f.Name == "Body" {
		return wholeRequest, true
	}
	return "", false
}
