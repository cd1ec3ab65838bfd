// ABOUTME: Request description and body encoding for the remote client
// ABOUTME: Callers pick JSON or multipart form bodies; the client frames the content type

package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/2389/coven-workspace/internal/validate"
)

// Request describes one call to the remote service.
// At most one of JSON and Form may be set; neither means an empty body.
type Request struct {
	Method string // defaults to POST
	Path   string // joined to the client's base URL, e.g. "/api/auth/login/"
	JSON   any
	Form   *Form
}

// op names the request in errors and logs.
func (r *Request) op() string {
	return r.method() + " " + r.Path
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodPost
	}
	return r.Method
}

// encode returns the body reader and its content type.
func (r *Request) encode() (io.Reader, string, error) {
	switch {
	case r.JSON != nil && r.Form != nil:
		return nil, "", fmt.Errorf("request %s sets both JSON and form bodies", r.op())
	case r.JSON != nil:
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	case r.Form != nil:
		return r.Form.encode()
	default:
		return nil, "", nil
	}
}

type formField struct {
	name, value string
}

type formFile struct {
	field    string
	filename string
	path     string    // read at encode time when set
	reader   io.Reader // used when path is empty
}

// Form is a multipart/form-data body of ordered fields and files.
type Form struct {
	fields []formField
	files  []formFile
}

// NewForm returns an empty multipart form.
func NewForm() *Form {
	return &Form{}
}

// Field appends a text field.
func (f *Form) Field(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// File appends a file part read from r.
func (f *Form) File(field, filename string, r io.Reader) *Form {
	f.files = append(f.files, formFile{field: field, filename: filename, reader: r})
	return f
}

// FilePath appends a file part read from the file at path when the request is sent.
func (f *Form) FilePath(field, path string) *Form {
	f.files = append(f.files, formFile{field: field, filename: filepath.Base(path), path: path})
	return f
}

func (f *Form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, file := range f.files {
		if err := writeFilePart(w, file); err != nil {
			return nil, "", err
		}
	}
	for _, field := range f.fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", field.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, file formFile) error {
	src := file.reader
	if file.path != "" {
		fh, err := os.Open(file.path)
		if err != nil {
			return &validate.Error{Field: file.field, Message: fmt.Sprintf("cannot read %s", file.filename)}
		}
		defer fh.Close()
		src = fh
	}

	part, err := w.CreateFormFile(file.field, file.filename)
	if err != nil {
		return fmt.Errorf("creating part %s: %w", file.field, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copying %s: %w", file.field, err)
	}
	return nil
}
