package mlapi

import (
	"reflect"
	"strings"
)

// paramTags are the struct tags used for binding request parameters.
var paramTags = []string{"path", "query", "header", "cookie"}

// isParamField reports whether a struct field has parameter binding tags.
func isParamField(f reflect.StructField) bool {
	for _, tag := range paramTags {
		if f.Tag.Get(tag) != "" {
			return true
		}
	}
	return false
}

// fieldName returns the name a field is reported under: its parameter
// tag for bound parameters, its JSON name otherwise.
func fieldName(f reflect.StructField) string {
	for _, tag := range paramTags {
		if name := f.Tag.Get(tag); name != "" {
			return name
		}
	}
	return jsonFieldName(f)
}

// isRequestParam reports whether a field is bound from the request rather
// than decoded from the body: parameter tags, scalar form fields and
// RawRequest.
func isRequestParam(f reflect.StructField) bool {
	if isParamField(f) || f.Type == reflect.TypeFor[RawRequest]() {
		return true
	}
	return f.Tag.Get("form") != "" && f.Type != reflect.TypeFor[Upload]()
}

// hasParamTags reports whether the given type has any fields bound from
// the request.
func hasParamTags(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if f.IsExported() && isRequestParam(f) {
			return true
		}
	}
	return false
}

// promotedStruct reports whether f is an embedded struct whose fields
// encoding/json promotes into the enclosing object, and returns its type.
func promotedStruct(f reflect.StructField) (reflect.Type, bool) {
	if !f.Anonymous {
		return nil, false
	}
	if name, _ := tagOptions(f.Tag.Get("json")); name != "" {
		return nil, false
	}
	t := f.Type
	if t.Kind() == reflect.Pointer {
		if !f.IsExported() {
			return nil, false
		}
		t = t.Elem()
	}
	if !isSchemaType(t) {
		return nil, false
	}
	return t, true
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(f reflect.StructField) string {
	name, _ := tagOptions(f.Tag.Get("json"))
	if name == "" {
		return f.Name
	}
	return name
}

// tagOptions splits a struct tag value on comma and returns
// the name and remaining options.
func tagOptions(tag string) (string, string) {
	name, opts, _ := strings.Cut(tag, ",")
	return name, opts
}
