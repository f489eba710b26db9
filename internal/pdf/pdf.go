// Package pdf inspects, enriches and unpacks PDF renditions of invoices.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrInvalid is returned by Inspect for content that does not open as a PDF.
var ErrInvalid = errors.New("pdf: document is not a valid PDF")

// Error is a failed PDF manipulation step. The root cause is kept for errors.Is/As.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("pdf %s: %v", e.Step, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

func stepErr(step string, err error) error { return &Error{Step: step, Err: err} }

func configuration() *pdfmodel.Configuration {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

// Inspect opens data and runs structural validation.
func Inspect(data []byte) error {
	if len(data) == 0 {
		return ErrInvalid
	}
	if err := api.Validate(bytes.NewReader(data), configuration()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// PageSizes returns the media box of every page in points.
func PageSizes(data []byte) ([]types.Dim, error) {
	dims, err := api.PageDims(bytes.NewReader(data), configuration())
	if err != nil {
		return nil, stepErr("page-dimensions", err)
	}
	if len(dims) == 0 {
		return nil, stepErr("page-dimensions", errors.New("document has no pages"))
	}
	return dims, nil
}

// EmbeddedFiles returns the embedded files of data keyed by file name.
func EmbeddedFiles(data []byte) (map[string][]byte, error) {
	atts, err := api.ExtractAttachmentsRaw(bytes.NewReader(data), "", nil, configuration())
	if err != nil {
		return nil, stepErr("extract-attachments", err)
	}
	out := make(map[string][]byte, len(atts))
	for _, a := range atts {
		b, err := io.ReadAll(a)
		if err != nil {
			return nil, stepErr("extract-attachments", err)
		}
		out[a.FileName] = b
	}
	return out, nil
}
