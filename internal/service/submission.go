package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"invoicevault/internal/audit"
	"invoicevault/internal/model"
	"invoicevault/internal/pdf"
	"invoicevault/internal/repository"
)

// Mode selects whether a submission is persisted.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeTest   Mode = "test"
)

func (m Mode) Valid() bool { return m == ModeNormal || m == ModeTest }

// ErrInvalidMode is returned for a mode other than normal or test.
var ErrInvalidMode = errors.New("unrecognized submission mode")

// Submission is the ephemeral input bundle.
type Submission struct {
	Main        model.DocumentRecord
	Attachments []model.DocumentRecord
	Mode        Mode
	// Enrich stamps the PDF rendition. When false it is stored unmodified.
	Enrich bool
}

// SubmitResult is the pipeline output. Transformed is nil in test mode.
type SubmitResult struct {
	Warnings    model.Outcome         `json:"outcome"`
	Transformed *model.DocumentRecord `json:"transformed,omitempty"`
	Attachments []ProcessedAttachment `json:"attachments,omitempty"`
}

func (s *invoiceService) Submit(ctx context.Context, sub Submission) (res *SubmitResult, err error) {
	if sub.Mode == "" {
		sub.Mode = ModeNormal
	}
	if !sub.Mode.Valid() {
		return nil, ErrInvalidMode
	}
	log := s.log.With().Str("mode", string(sub.Mode)).Logger()
	defer func() {
		s.metrics.submission(sub.Mode, err)
		var tok, id string
		if res != nil && res.Transformed != nil {
			tok = res.Transformed.ID
			if links := res.Transformed.LinksWith(model.LinkTransforms); len(links) > 0 {
				id = model.ReferencedID(links[0])
			}
		}
		if sub.Mode == ModeNormal {
			s.record(ctx, audit.ActionSubmit, tok, id, err)
		}
		if err != nil {
			log.Warn().Err(err).Msg("submission rejected")
		}
	}()

	var warnings model.Outcome

	shape := s.validator.ValidateDocument(ctx, &sub.Main)
	blocking, rest := shape.Split()
	if blocking.HasBlocking() {
		return nil, &ValidationError{Outcome: blocking}
	}
	warnings.Merge(rest)

	cls, err := s.classifier.Classify(ctx, &sub.Main, sub.Mode)
	if err != nil {
		return nil, err
	}
	warnings.Merge(cls.Warnings)

	if sub.Mode == ModeTest {
		return &SubmitResult{Warnings: warnings}, nil
	}

	orig := newOriginal(sub.Main, uuid.NewString())
	savedOrig, err := s.docs.Create(ctx, &orig)
	if err != nil {
		return nil, internal("persist original", err)
	}

	t := newTransformed(*savedOrig)
	if t.Subject == nil && cls.Subject != nil {
		subject := *cls.Subject
		t.Subject = &subject
	}
	if t.Author == nil {
		if actor := ActorFrom(ctx); actor != "" {
			t.Author = &model.Reference{Reference: actor}
		}
	}
	tok, err := s.tokens.Generate(ctx)
	if err != nil {
		return nil, internal("issue token", err)
	}
	t.ID = tok
	defer func() { s.releaseToken(ctx, t.ID) }()

	for _, p := range cls.Parts {
		if sp, ok := p.(*StructuredPart); ok && sp.PayloadID != "" {
			pointSlotAt(&t, sp.Index, model.PayloadURL(sp.PayloadID), int64(len(sp.Raw)))
		}
	}

	pdfPart := cls.FirstPDF()
	structured := cls.FirstStructured()
	enriched := pdfPart != nil && sub.Enrich && s.enricher != nil
	if pdfPart != nil {
		if err := s.storePDF(ctx, &t, pdfPart, structured, enriched); err != nil {
			return nil, err
		}
	}

	processed, messages, err := s.attachments.Process(ctx, sub.Attachments, sub.Mode, &t)
	if err != nil {
		return nil, err
	}
	warnings.Merge(messages)

	if t.IsInvoice() && s.sealer != nil && (pdfPart != nil || structured != nil) {
		var pdfBytes, payloadBytes []byte
		if pdfPart != nil {
			pdfBytes = pdfPart.Data
		}
		if structured != nil {
			payloadBytes = structured.Raw
		}
		sig, err := s.sealer.Seal(pdfBytes, payloadBytes)
		if err != nil {
			return nil, internal("seal", err)
		}
		setExtension(&t, model.Extension{URL: model.ExtSignature, ValueBase64: sig})
	}

	saved, err := s.commit(ctx, &t, pdfPart, structured, enriched)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("token", saved.ID).
		Str("original_id", savedOrig.ID).
		Int("attachments", len(processed)).
		Int("warnings", len(warnings.Issues)).
		Msg("invoice submitted")

	return &SubmitResult{Warnings: warnings, Transformed: saved, Attachments: processed}, nil
}

// storePDF persists the rendition. With enrichment the untouched source is
// kept as its own binary and referenced by the source-pdf extension.
func (s *invoiceService) storePDF(ctx context.Context, t *model.DocumentRecord, part *PDFPart, structured *StructuredPart, enrich bool) error {
	src, err := s.binaries.Save(ctx, "application/pdf", part.Data)
	if err != nil {
		return internal("persist pdf", err)
	}
	if !enrich {
		pointSlotAt(t, part.Index, model.BinaryURL(src.ID), src.Size)
		return nil
	}
	setExtension(t, model.Extension{URL: model.ExtSourcePDF, ValueString: model.BinaryURL(src.ID)})
	return s.enrichPDF(ctx, t, part, structured)
}

func (s *invoiceService) enrichPDF(ctx context.Context, t *model.DocumentRecord, part *PDFPart, structured *StructuredPart) error {
	var payload pdf.Payload
	if structured != nil {
		payload = pdf.Payload{
			Name:        embeddedName(structured.ContentType),
			ContentType: structured.ContentType,
			Data:        structured.Raw,
		}
	}
	out, err := s.enricher.Enrich(part.Data, t.ID, payload)
	if err != nil {
		return internal("enrich pdf", err)
	}
	bin, err := s.binaries.Save(ctx, "application/pdf", out)
	if err != nil {
		return internal("persist enriched pdf", err)
	}
	pointSlotAt(t, part.Index, model.BinaryURL(bin.ID), bin.Size)
	return nil
}

func embeddedName(contentType string) string {
	if structuredFormat(model.ContentSlot{ContentType: contentType}.MediaType()) == formatJSON {
		return "invoice.json"
	}
	return pdf.PayloadFileName
}

// commit writes the transformed record. A duplicate token at write time means
// another submission won the race: a new token is drawn and the stamped PDF,
// which carries the token, is rebuilt.
func (s *invoiceService) commit(ctx context.Context, t *model.DocumentRecord, part *PDFPart, structured *StructuredPart, enriched bool) (*model.DocumentRecord, error) {
	for attempt := 1; ; attempt++ {
		saved, err := s.docs.Create(ctx, t)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt >= s.tokens.MaxAttempts() {
			return nil, internal("persist transformed", err)
		}
		s.log.Warn().Int("attempt", attempt).Msg("token taken at write time, regenerating")

		s.releaseToken(ctx, t.ID)
		tok, err := s.tokens.Generate(ctx)
		if err != nil {
			return nil, internal("issue token", err)
		}
		t.ID = tok
		if enriched {
			stale := t.Content[part.Index].URL
			if err := s.enrichPDF(ctx, t, part, structured); err != nil {
				return nil, err
			}
			if err := s.deleteContent(ctx, stale); err != nil {
				s.log.Warn().Err(err).Str("url", stale).Msg("stale enriched pdf not removed")
			}
		}
	}
}

func (s *invoiceService) releaseToken(ctx context.Context, tok string) {
	if tok == "" {
		return
	}
	if err := s.tokens.Release(ctx, tok); err != nil {
		s.log.Warn().Err(err).Msg("token reservation not released")
	}
}
