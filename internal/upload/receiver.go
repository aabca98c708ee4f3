// Package upload stages multipart file uploads in a local directory until
// they are forwarded to the media provider.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// maxValueSize caps a single non-file form field.
const maxValueSize = 64 << 10

var (
	// ErrTooLarge is returned when the request body exceeds the receiver's limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
	// ErrMalformed is returned when the multipart body cannot be parsed.
	ErrMalformed = errors.New("malformed multipart body")
)

// File is a received attachment staged on local disk.
type File struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// Open opens the staged file for reading.
func (f *File) Open() (*os.File, error) {
	return os.Open(f.Path)
}

// Remove deletes the staged file. A file that is already gone is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Receiver streams one file part of a multipart request into dir.
type Receiver struct {
	dir     string
	maxSize int64
}

// NewReceiver creates dir if needed and returns a Receiver that rejects
// bodies larger than maxSize bytes.
func NewReceiver(dir string, maxSize int64) (*Receiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	return &Receiver{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the staging directory.
func (rc *Receiver) Dir() string {
	return rc.dir
}

// Receive reads the multipart body of r. The first file part named field is
// written to a freshly named file in the staging directory; every other text
// field is returned in the values. A request without that part, or without a
// multipart body at all, yields a nil File and no error.
//
// On error nothing is left on disk.
func (rc *Receiver) Receive(w http.ResponseWriter, r *http.Request, field string) (*File, url.Values, error) {
	values := url.Values{}

	r.Body = http.MaxBytesReader(w, r.Body, rc.maxSize)
	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, values, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var staged *File
	fail := func(err error) (*File, url.Values, error) {
		if staged != nil {
			_ = staged.Remove()
		}
		return nil, nil, classify(err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(err)
		}

		switch {
		case part.FileName() != "":
			if part.FormName() != field || staged != nil {
				// Unexpected or repeated file parts are skipped.
				if _, err := io.Copy(io.Discard, part); err != nil {
					return fail(err)
				}
				continue
			}
			f, err := rc.stage(part)
			if err != nil {
				return fail(err)
			}
			staged = f
		default:
			b, err := io.ReadAll(io.LimitReader(part, maxValueSize+1))
			if err != nil {
				return fail(err)
			}
			if len(b) > maxValueSize {
				return fail(fmt.Errorf("form field %q too long", part.FormName()))
			}
			values.Add(part.FormName(), string(b))
		}
	}

	return staged, values, nil
}

func (rc *Receiver) stage(part *multipart.Part) (*File, error) {
	path := filepath.Join(rc.dir, uuid.NewString())
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	f := &File{
		Path:        path,
		Filename:    filepath.Base(part.FileName()),
		ContentType: part.Header.Get("Content-Type"),
	}

	n, err := io.Copy(dst, part)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = f.Remove()
		return nil, err
	}
	f.Size = n
	return f, nil
}

func classify(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return ErrTooLarge
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
