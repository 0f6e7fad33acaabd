package mlapi

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"time"
)

// binding is the per-route decoding plan, computed at registration.
type binding struct {
	body  BodyConfig
	files []string

	// whole is set when the request type itself is the body.
	whole bool
}

func newBinding(t reflect.Type) binding {
	cfg, files := ParseSignature(t)
	b := binding{body: cfg, files: files}
	b.whole = len(cfg) == 1 && cfg[0].index == nil
	return b
}

// decodeRequest creates a new Req and populates it from the HTTP request.
// Body failures come back as a ready 422/413 response; parameter binding
// failures as an error.
func decodeRequest[Req any](r *http.Request, b binding) (*Req, *Response, error) {
	req := new(Req)
	rv := reflect.ValueOf(req).Elem()

	if rv.Kind() == reflect.Struct && !b.whole {
		if err := bindParams(rv, r); err != nil {
			return nil, nil, err
		}
	}

	params, upload, err := readBodyParams(r, b.body, b.files)
	if err != nil {
		return nil, ErrorResponse(err), nil
	}
	if resp := MarshalBody(b.body, params); resp != nil {
		return nil, resp, nil
	}
	if resp := MarshalFiles(b.files, upload, params); resp != nil {
		return nil, resp, nil
	}
	if err := assignBodyParams(rv, b.body, b.files, params); err != nil {
		return nil, nil, err
	}

	if rv.Kind() == reflect.Struct && !b.whole {
		if err := bindFormValues(rv, r); err != nil {
			return nil, nil, err
		}
	}
	return req, nil, nil
}

// bindParams binds path, query, header and cookie values to struct fields
// and injects RawRequest.
func bindParams(v reflect.Value, r *http.Request) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		field := v.Field(i)

		if f.Type == reflect.TypeFor[RawRequest]() {
			field.Set(reflect.ValueOf(RawRequest{Request: r}))
			continue
		}

		for _, tag := range paramTags {
			name := f.Tag.Get(tag)
			if name == "" {
				continue
			}
			val := paramValue(r, tag, name)
			if val == "" && tag != "path" {
				val = f.Tag.Get("default")
			}
			if val == "" {
				continue
			}
			if err := setFieldValue(field, val); err != nil {
				return fmt.Errorf("%w: %s: %w", paramSentinel(tag), name, err)
			}
		}
	}
	return nil
}

func paramValue(r *http.Request, tag, name string) string {
	switch tag {
	case "path":
		return r.PathValue(name)
	case "query":
		return r.URL.Query().Get(name)
	case "header":
		return r.Header.Get(name)
	case "cookie":
		if c, err := r.Cookie(name); err == nil {
			return c.Value
		}
	}
	return ""
}

func paramSentinel(tag string) error {
	switch tag {
	case "path":
		return ErrBindPath
	case "query":
		return ErrBindQuery
	case "header":
		return ErrBindHeader
	default:
		return ErrBindCookie
	}
}

// bindFormValues binds scalar multipart fields tagged with "form". The
// form has already been parsed by readBodyParams when the route reads a
// body; otherwise it is parsed here.
func bindFormValues(v reflect.Value, r *http.Request) error {
	if !isMultipart(r) {
		return nil
	}

	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Type == reflect.TypeFor[Upload]() {
			continue
		}
		name, _ := tagOptions(f.Tag.Get("form"))
		if name == "" {
			continue
		}
		if r.MultipartForm == nil {
			if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
				return fmt.Errorf("%w: %w", ErrBindForm, err)
			}
		}
		if val := r.FormValue(name); val != "" {
			if err := setFieldValue(v.Field(i), val); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrBindForm, name, err)
			}
		}
	}
	return nil
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}
