package mlapi

import (
	"fmt"
	"io"
	"iter"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
)

// maxMultipartMemory is the maximum memory used for multipart form parsing (32 MB).
const maxMultipartMemory = 32 << 20

// File is a single uploaded file.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the length of the file contents in bytes.
func (f File) Size() int { return len(f.Data) }

// Upload holds the files of a multipart request, one per form field, in
// field name order.
type Upload struct {
	files []File
}

// Add appends a file. A second file for the same field replaces the first.
func (u *Upload) Add(f File) {
	for i := range u.files {
		if u.files[i].Field == f.Field {
			u.files[i] = f
			return
		}
	}
	u.files = append(u.files, f)
}

// Get returns the file uploaded under field.
func (u Upload) Get(field string) (File, bool) {
	for _, f := range u.files {
		if f.Field == field {
			return f, true
		}
	}
	return File{}, false
}

// Fields returns the form field names that carried a file.
func (u Upload) Fields() []string {
	fields := make([]string, len(u.files))
	for i, f := range u.files {
		fields[i] = f.Field
	}
	return fields
}

// Files returns a copy of the uploaded files.
func (u Upload) Files() []File { return slices.Clone(u.files) }

// All iterates field name and file pairs.
func (u Upload) All() iter.Seq2[string, File] {
	return func(yield func(string, File) bool) {
		for _, f := range u.files {
			if !yield(f.Field, f) {
				return
			}
		}
	}
}

// Len returns the number of uploaded files.
func (u Upload) Len() int { return len(u.files) }

// Empty reports whether the request carried no files.
func (u Upload) Empty() bool { return len(u.files) == 0 }

// readUpload collects the first file of every field of a parsed multipart
// form. multipart.Form keeps no part order, so fields are sorted by name.
func readUpload(form *multipart.Form) (Upload, error) {
	var u Upload
	if form == nil {
		return u, nil
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	for _, field := range fields {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		data, err := readFileHeader(headers[0])
		if err != nil {
			return Upload{}, fmt.Errorf("%w: %s: %w", ErrBindForm, field, err)
		}
		u.Add(File{
			Field:       field,
			Filename:    headers[0].Filename,
			ContentType: headers[0].Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return u, nil
}

func readFileHeader(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// isMultipart reports whether the request carries a multipart/form-data body.
func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}
