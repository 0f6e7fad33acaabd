package mlapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
)

// emptyObject is offered to schema parameters when the request has no
// body, so required fields are still reported.
var emptyObject = []byte("{}")

// MarshalBody decodes the raw values in params according to cfg, in
// order. Absent parameters are skipped and values that are neither string
// nor []byte are taken as already decoded. On success every classified
// value is replaced and nil is returned. The first failure stops
// processing and is returned as a 422 response.
func MarshalBody(cfg BodyConfig, params map[string]any) *Response {
	decoded := make(map[string]any, len(cfg))
	for _, p := range cfg {
		v, ok := params[p.Name]
		if !ok {
			continue
		}
		raw, ok := rawBytes(v)
		if !ok {
			continue
		}

		switch p.Kind {
		case BodySchema:
			inst, err := p.Schema.Validate(raw)
			if err != nil {
				return ErrorResponse(err)
			}
			decoded[p.Name] = inst
		case BodyJSON:
			val, err := decodeJSON(raw, p.typ)
			if err != nil {
				return ErrorResponse(validationFailed(err.Error()))
			}
			decoded[p.Name] = val
		case BodyRaw, BodyFile:
		}
	}

	for name, v := range decoded {
		params[name] = v
	}
	return nil
}

// MarshalFiles assigns upload to every file parameter. When file
// parameters are declared and the request carried no files, the 422
// missing_files response is returned instead.
func MarshalFiles(fileParams []string, upload Upload, params map[string]any) *Response {
	if len(fileParams) == 0 {
		return nil
	}
	if upload.Empty() {
		body, _ := json.Marshal(map[string]any{
			"error":    "missing_files",
			"required": fileParams,
		})
		return &Response{
			Status:  http.StatusUnprocessableEntity,
			Headers: http.Header{"Content-Type": {"application/json"}},
			Body:    body,
		}
	}
	for _, name := range fileParams {
		params[name] = upload
	}
	return nil
}

func rawBytes(v any) ([]byte, bool) {
	switch raw := v.(type) {
	case []byte:
		return raw, true
	case string:
		return []byte(raw), true
	case RawBody:
		return raw, true
	default:
		return nil, false
	}
}

func decodeJSON(raw []byte, t reflect.Type) (any, error) {
	if t == nil {
		var v any
		err := json.Unmarshal(raw, &v)
		return v, err
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// readBodyParams offers the raw request content to every classified
// parameter. Multipart requests offer the form value named after each
// parameter and their files as the upload.
func readBodyParams(r *http.Request, cfg BodyConfig, files []string) (map[string]any, Upload, error) {
	params := make(map[string]any, len(cfg)+len(files))
	if len(cfg) == 0 && len(files) == 0 {
		return params, Upload{}, nil
	}

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, Upload{}, bodyError(ErrBindForm, err)
		}
		for _, p := range cfg {
			if vals, ok := r.MultipartForm.Value[p.Name]; ok && len(vals) > 0 {
				params[p.Name] = vals[0]
			} else if p.Kind == BodySchema {
				params[p.Name] = emptyObject
			}
		}
		upload, err := readUpload(r.MultipartForm)
		if err != nil {
			return nil, Upload{}, bodyError(ErrBindForm, err)
		}
		return params, upload, nil
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, Upload{}, bodyError(ErrBindBody, err)
		}
	}
	for _, p := range cfg {
		switch {
		case len(body) > 0:
			params[p.Name] = body
		case p.Kind == BodySchema:
			params[p.Name] = emptyObject
		}
	}
	return params, Upload{}, nil
}

// bodyError maps a body read failure to 413 or 400.
func bodyError(sentinel, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return Errorf(http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", maxErr.Limit)
	}
	return Error(http.StatusBadRequest, fmt.Errorf("%w: %w", sentinel, err).Error())
}

// assignBodyParams stores the decoded parameter values into the request.
func assignBodyParams(req reflect.Value, cfg BodyConfig, files []string, params map[string]any) error {
	for _, p := range cfg {
		v, ok := params[p.Name]
		if !ok {
			continue
		}
		if err := assignValue(fieldOf(req, p.index), v); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBindBody, p.Name, err)
		}
	}

	if len(files) == 0 {
		return nil
	}
	t := req.Type()
	if t == reflect.TypeFor[Upload]() {
		if v, ok := params[files[0]].(Upload); ok {
			req.Set(reflect.ValueOf(v))
		}
		return nil
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Type != reflect.TypeFor[Upload]() {
			continue
		}
		if v, ok := params[mustBodyParamName(f)].(Upload); ok {
			req.Field(i).Set(reflect.ValueOf(v))
		}
	}
	return nil
}

func mustBodyParamName(f reflect.StructField) string {
	name, _ := bodyParamName(f)
	return name
}

func fieldOf(v reflect.Value, index []int) reflect.Value {
	if index == nil {
		return v
	}
	return v.FieldByIndex(index)
}

// assignValue sets dst from v, dereferencing or converting as needed.
func assignValue(dst reflect.Value, v any) error {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok && dst.Type() == reflect.TypeFor[RawBody]() {
		dst.SetBytes(b)
		return nil
	}
	if s, ok := v.(string); ok && dst.Type() == reflect.TypeFor[RawBody]() {
		dst.SetBytes([]byte(s))
		return nil
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(dst.Type()):
		dst.Set(rv)
	case rv.Kind() == reflect.Pointer && rv.Elem().Type().AssignableTo(dst.Type()):
		dst.Set(rv.Elem())
	case rv.Type().ConvertibleTo(dst.Type()):
		dst.Set(rv.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %s to %s", rv.Type(), dst.Type())
	}
	return nil
}
