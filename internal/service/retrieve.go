package service

import (
	"context"
	"errors"
	"fmt"

	"invoicevault/internal/audit"
	"invoicevault/internal/model"
	"invoicevault/internal/repository"
	"invoicevault/internal/token"
)

// Selector picks the parts returned by Retrieve. An empty selector returns the metadata.
type Selector struct {
	Metadata    bool
	Payload     bool
	OriginalPDF bool
	EnrichedPDF bool
	Signature   bool
}

func (s Selector) empty() bool {
	return !s.Metadata && !s.Payload && !s.OriginalPDF && !s.EnrichedPDF && !s.Signature
}

// Retrieved holds the selected parts; unselected or absent parts are nil.
type Retrieved struct {
	Token       string                `json:"token"`
	Metadata    *model.DocumentRecord `json:"metadata,omitempty"`
	Payload     *model.Payload        `json:"payload,omitempty"`
	OriginalPDF *model.Binary         `json:"originalPdf,omitempty"`
	EnrichedPDF *model.Binary         `json:"enrichedPdf,omitempty"`
	Signature   []byte                `json:"signature,omitempty"`
}

func (s *invoiceService) Retrieve(ctx context.Context, tok string, sel Selector) (res *Retrieved, err error) {
	var recordID string
	defer func() { s.record(ctx, audit.ActionRetrieve, tok, recordID, err) }()

	if !token.Valid(tok) {
		return nil, ErrInvalidToken
	}
	rec, err := s.find(ctx, tok)
	if err != nil {
		return nil, err
	}
	recordID = rec.ID
	if sel.empty() {
		sel.Metadata = true
	}

	out := &Retrieved{Token: tok}
	if sel.Metadata {
		out.Metadata = rec
	}
	if sel.Payload {
		if u := firstURL(rec, model.ContentPayload, ""); u != "" {
			_, id, _ := model.ParseContentURL(u)
			p, err := s.payloads.FindByID(ctx, id)
			if err != nil {
				return nil, internal("load payload", dangling(u, err))
			}
			out.Payload = p
		}
	}

	pdfURL := firstURL(rec, model.ContentBinary, "application/pdf")
	source, stamped := rec.Extension(model.ExtSourcePDF)
	stamped = stamped && rec.Kind == model.KindTransformed
	if sel.OriginalPDF {
		u := pdfURL
		if stamped {
			u = source.ValueString
		}
		if out.OriginalPDF, err = s.loadBinary(ctx, u); err != nil {
			return nil, err
		}
	}
	if sel.EnrichedPDF && stamped {
		if out.EnrichedPDF, err = s.loadBinary(ctx, pdfURL); err != nil {
			return nil, err
		}
	}
	if sel.Signature {
		if e, ok := rec.Extension(model.ExtSignature); ok {
			out.Signature = e.ValueBase64
		}
	}
	return out, nil
}

func (s *invoiceService) loadBinary(ctx context.Context, u string) (*model.Binary, error) {
	kind, id, ok := model.ParseContentURL(u)
	if !ok || kind != model.ContentBinary {
		return nil, nil
	}
	b, err := s.binaries.Load(ctx, id)
	if err != nil {
		return nil, internal("load binary", dangling(u, err))
	}
	return b, nil
}

// firstURL returns the URL of the first slot stored in kind, optionally
// restricted to a media type.
func firstURL(rec *model.DocumentRecord, kind model.ContentKind, mediaType string) string {
	for _, c := range rec.Content {
		k, _, ok := model.ParseContentURL(c.URL)
		if !ok || k != kind {
			continue
		}
		if mediaType != "" && c.MediaType() != mediaType {
			continue
		}
		return c.URL
	}
	return ""
}

func dangling(u string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s referenced but missing", u)
	}
	return err
}
