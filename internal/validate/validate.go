// ABOUTME: Pre-flight input validation for auth forms and agent submissions
// ABOUTME: Rejects missing or malformed input before any network call is made

package validate

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu otherwise installs a config directory under the user's home
	model.ConfigPath = "disable"
}

// Error reports missing or malformed input for a named field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, &validate.Error{}) match any validation error.
func (e *Error) Is(target error) bool {
	_, ok := target.(*Error)
	return ok
}

// IsValidation reports whether err is or wraps a validation error.
func IsValidation(err error) bool {
	var v *Error
	return errors.As(err, &v)
}

func fail(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Required rejects empty or whitespace-only values.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fail(field, "is required")
	}
	return nil
}

// Email rejects values that are not a bare email address.
func Email(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		return fail(field, "is not a valid email address")
	}
	return nil
}

// Code rejects one-time codes that are not exactly length digits.
func Code(field, value string, length int) error {
	if len(value) != length {
		return fail(field, "must be %d digits", length)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return fail(field, "must be %d digits", length)
		}
	}
	return nil
}

// HTTPURL rejects values that are not absolute http(s) URLs.
func HTTPURL(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fail(field, "must be an http(s) URL")
	}
	return nil
}

// FilePattern is a compiled accept list for uploaded file names, e.g. "*.{pdf,doc,docx}".
type FilePattern struct {
	source string
	g      glob.Glob
}

// MustFilePattern compiles pattern, matching base names case-insensitively.
func MustFilePattern(pattern string) *FilePattern {
	return &FilePattern{source: pattern, g: glob.MustCompile(strings.ToLower(pattern))}
}

// String returns the pattern source.
func (p *FilePattern) String() string {
	return p.source
}

// File checks that path names an existing regular file whose base name matches
// the pattern and whose size does not exceed maxBytes (0 means unlimited).
func (p *FilePattern) File(field, path string, maxBytes int64) error {
	if err := Required(field, path); err != nil {
		return err
	}
	if !p.g.Match(strings.ToLower(filepath.Base(path))) {
		return fail(field, "%s does not match %s", filepath.Base(path), p.source)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fail(field, "cannot read %s", path)
	}
	if info.IsDir() {
		return fail(field, "%s is a directory", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return fail(field, "%s exceeds %d bytes", filepath.Base(path), maxBytes)
	}
	return nil
}

var pdfPattern = MustFilePattern("*.pdf")

// PDF checks that path is a readable PDF document and returns its page count.
func PDF(field, path string) (int, error) {
	if err := pdfPattern.File(field, path, 0); err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fail(field, "cannot read %s", path)
	}
	defer f.Close()

	return PDFReader(field, filepath.Base(path), f)
}

// PDFReader checks that r holds a PDF document and returns its page count.
// name is used in the error message only.
func PDFReader(field, name string, r io.ReadSeeker) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pages, err := api.PageCount(r, conf)
	if err != nil {
		return 0, fail(field, "%s is not a valid PDF document", name)
	}
	return pages, nil
}
