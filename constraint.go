package mlapi

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// constraintRule checks one struct tag against a field value. check is
// called only when the tag is set and applies reports the value kind
// matches; it returns the violation message and the offending value.
type constraintRule struct {
	tag     string
	applies func(reflect.Kind) bool
	check   func(tag string, fv reflect.Value) (msg string, value any, ok bool)
}

var constraintRules = []constraintRule{
	{tag: "minLength", applies: isStringKind, check: func(tag string, fv reflect.Value) (string, any, bool) {
		n, err := strconv.Atoi(tag)
		if err != nil || len(fv.String()) >= n {
			return "", nil, true
		}
		return fmt.Sprintf("must be at least %d characters", n), fv.String(), false
	}},
	{tag: "maxLength", applies: isStringKind, check: func(tag string, fv reflect.Value) (string, any, bool) {
		n, err := strconv.Atoi(tag)
		if err != nil || len(fv.String()) <= n {
			return "", nil, true
		}
		return fmt.Sprintf("must be at most %d characters", n), fv.String(), false
	}},
	{tag: "pattern", applies: isStringKind, check: func(tag string, fv reflect.Value) (string, any, bool) {
		re, err := compilePattern(tag)
		if err != nil || re.MatchString(fv.String()) {
			return "", nil, true
		}
		return "must match pattern " + tag, fv.String(), false
	}},
	{tag: "minimum", applies: isNumericKind, check: func(tag string, fv reflect.Value) (string, any, bool) {
		lower, err := strconv.ParseFloat(tag, 64)
		if v := toFloat64(fv); err == nil && v < lower {
			return "must be at least " + tag, v, false
		}
		return "", nil, true
	}},
	{tag: "maximum", applies: isNumericKind, check: func(tag string, fv reflect.Value) (string, any, bool) {
		upper, err := strconv.ParseFloat(tag, 64)
		if v := toFloat64(fv); err == nil && v > upper {
			return "must be at most " + tag, v, false
		}
		return "", nil, true
	}},
	{tag: "enum", applies: isStringKind, check: func(tag string, fv reflect.Value) (string, any, bool) {
		if slices.Contains(strings.Split(tag, ","), fv.String()) {
			return "", nil, true
		}
		return fmt.Sprintf("must be one of [%s]", tag), fv.String(), false
	}},
	{tag: "minItems", applies: isSliceKind, check: func(tag string, fv reflect.Value) (string, any, bool) {
		n, err := strconv.Atoi(tag)
		if err != nil || fv.Len() >= n {
			return "", nil, true
		}
		return fmt.Sprintf("must have at least %d items", n), fv.Len(), false
	}},
	{tag: "maxItems", applies: isSliceKind, check: func(tag string, fv reflect.Value) (string, any, bool) {
		n, err := strconv.Atoi(tag)
		if err != nil || fv.Len() <= n {
			return "", nil, true
		}
		return fmt.Sprintf("must have at most %d items", n), fv.Len(), false
	}},
}

// validateConstraints checks the constraint tags of a request's parameter
// fields and returns a 422 ProblemDetail listing every violation.
func validateConstraints(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var errs []ValidationError
	collectConstraintErrors(rv, "", true, &errs)
	if len(errs) > 0 {
		return validationFailed(fmt.Sprintf("%d constraint violation(s)", len(errs)), errs...)
	}
	return nil
}

// collectConstraintErrors appends the violations found in rv. With
// skipBody set, body parameter fields are left to their schema. Embedded
// structs are flattened into their parent the way encoding/json does.
func collectConstraintErrors(rv reflect.Value, prefix string, skipBody bool, errs *[]ValidationError) {
	t := rv.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		fv := rv.Field(i)

		if f.Type == reflect.TypeFor[RawRequest]() || f.Type == reflect.TypeFor[Upload]() {
			continue
		}
		if _, ok := bodyParamName(f); ok && skipBody {
			continue
		}
		if _, ok := promotedStruct(f); ok {
			if fv, ok := derefStruct(fv); ok {
				collectConstraintErrors(fv, prefix, skipBody, errs)
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		name := fieldName(f)
		if name == "-" {
			continue
		}
		path := joinPath(prefix, name)

		for _, rule := range constraintRules {
			tag := f.Tag.Get(rule.tag)
			if tag == "" || !rule.applies(fv.Kind()) {
				continue
			}
			if msg, value, ok := rule.check(tag, fv); !ok {
				*errs = append(*errs, ValidationError{Field: path, Message: msg, Value: value})
			}
		}

		if isSchemaType(f.Type) && !isParamField(f) {
			if fv, ok := derefStruct(fv); ok {
				collectConstraintErrors(fv, path, false, errs)
			}
		}
	}
}

// derefStruct follows a non-nil pointer to the struct it points at.
func derefStruct(v reflect.Value) (reflect.Value, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.Kind() == reflect.Struct
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

var patternCache sync.Map // string → *regexp.Regexp

func compilePattern(expr string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patternCache.Store(expr, re)
	return re, nil
}

func isStringKind(k reflect.Kind) bool { return k == reflect.String }

func isSliceKind(k reflect.Kind) bool { return k == reflect.Slice }

func isNumericKind(k reflect.Kind) bool {
	//exhaustive:ignore
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func toFloat64(v reflect.Value) float64 {
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
