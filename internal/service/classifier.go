package service

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"invoicevault/internal/model"
	"invoicevault/internal/pdf"
	"invoicevault/internal/repository"
	"invoicevault/internal/validation"
)

// DefaultMaxContentSize caps a single inline content slot.
const DefaultMaxContentSize int64 = 10 << 20

// ContentPart is the classification of one content slot. The set of
// implementations is closed: StructuredPart, PDFPart and OtherPart.
type ContentPart interface {
	SlotIndex() int
	isContentPart()
}

// StructuredPart is a parsed machine-readable invoice.
type StructuredPart struct {
	Index       int
	ContentType string
	Raw         []byte
	Invoice     *model.Invoice
	// PayloadID is set once the payload has been persisted.
	PayloadID string
}

// PDFPart is a structurally valid PDF rendition.
type PDFPart struct {
	Index int
	Data  []byte
}

// OtherPart is a slot that is passed through unexamined.
type OtherPart struct {
	Index int
}

func (p *StructuredPart) SlotIndex() int { return p.Index }
func (p *PDFPart) SlotIndex() int        { return p.Index }
func (p *OtherPart) SlotIndex() int      { return p.Index }

func (*StructuredPart) isContentPart() {}
func (*PDFPart) isContentPart()        {}
func (*OtherPart) isContentPart()      {}

// Classification is produced once per main document and consumed by the later stages.
type Classification struct {
	Parts    []ContentPart
	Subject  *model.Reference
	Warnings model.Outcome
}

// FirstPDF returns the enrichment and signing source, if any.
func (c *Classification) FirstPDF() *PDFPart {
	for _, p := range c.Parts {
		if v, ok := p.(*PDFPart); ok {
			return v
		}
	}
	return nil
}

// FirstStructured returns the first structured payload, if any.
func (c *Classification) FirstStructured() *StructuredPart {
	for _, p := range c.Parts {
		if v, ok := p.(*StructuredPart); ok {
			return v
		}
	}
	return nil
}

type payloadFormat int

const (
	formatNone payloadFormat = iota
	formatJSON
	formatXML
)

func structuredFormat(mediaType string) payloadFormat {
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return formatJSON
	case mediaType == "application/xml" || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml"):
		return formatXML
	}
	return formatNone
}

// Classifier inspects the content slots of a main document.
type Classifier struct {
	validator validation.Validator
	payloads  repository.PayloadRepository
	maxSize   int64
}

// NewClassifier creates a Classifier that rejects content slots larger than maxSize.
func NewClassifier(v validation.Validator, payloads repository.PayloadRepository, maxSize int64) *Classifier {
	if maxSize <= 0 {
		maxSize = DefaultMaxContentSize
	}
	return &Classifier{validator: v, payloads: payloads, maxSize: maxSize}
}

// Classify parses and validates every inline slot of doc. Any blocking issue
// aborts with a *ValidationError before anything is persisted. In normal mode
// the structured payloads are then stored and their ids recorded on the parts.
func (c *Classifier) Classify(ctx context.Context, doc *model.DocumentRecord, mode Mode) (*Classification, error) {
	out := &Classification{}
	var blocking model.Outcome

	for i, slot := range doc.Content {
		loc := fmt.Sprintf("content[%d]", i)
		mt := slot.MediaType()
		if !slot.Inline() || mt == "" {
			out.Parts = append(out.Parts, &OtherPart{Index: i})
			continue
		}

		if int64(len(slot.Data)) > c.maxSize {
			blocking.Add(model.SeverityError, "too-large",
				fmt.Sprintf("content is %d bytes, limit is %d", len(slot.Data), c.maxSize), loc)
			continue
		}

		format := structuredFormat(mt)
		switch {
		case format != formatNone:
			inv, err := decodeInvoice(slot.Data, format)
			if err != nil {
				blocking.Add(model.SeverityFatal, "structure", "cannot parse invoice: "+err.Error(), loc)
				continue
			}
			res := c.validator.ValidateInvoice(ctx, inv)
			errs, warns := res.Split()
			blocking.Merge(prefixed(errs, loc))
			out.Warnings.Merge(prefixed(warns, loc))
			if out.Subject == nil {
				out.Subject = inv.SubjectReference()
			}
			out.Parts = append(out.Parts, &StructuredPart{Index: i, ContentType: slot.ContentType, Raw: slot.Data, Invoice: inv})

		case mt == "application/pdf":
			if err := pdf.Inspect(slot.Data); err != nil {
				blocking.Add(model.SeverityFatal, "structure", err.Error(), loc)
				continue
			}
			out.Parts = append(out.Parts, &PDFPart{Index: i, Data: slot.Data})

		default:
			out.Parts = append(out.Parts, &OtherPart{Index: i})
		}
	}

	if blocking.HasBlocking() {
		return nil, &ValidationError{Outcome: blocking}
	}
	if mode != ModeNormal {
		return out, nil
	}

	for _, p := range out.Parts {
		sp, ok := p.(*StructuredPart)
		if !ok {
			continue
		}
		saved, err := c.payloads.Create(ctx, &model.Payload{
			ContentType: sp.ContentType,
			Raw:         sp.Raw,
			Invoice:     sp.Invoice,
		})
		if err != nil {
			return nil, internal("persist payload", err)
		}
		sp.PayloadID = saved.ID
	}
	return out, nil
}

func decodeInvoice(data []byte, format payloadFormat) (*model.Invoice, error) {
	var inv model.Invoice
	switch format {
	case formatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&inv); err != nil {
			return nil, err
		}
		if dec.More() {
			return nil, fmt.Errorf("trailing data after invoice")
		}
	case formatXML:
		if err := xml.Unmarshal(data, &inv); err != nil {
			return nil, err
		}
	}
	return &inv, nil
}

// prefixed scopes issue locations to a slot or attachment.
func prefixed(o model.Outcome, prefix string) model.Outcome {
	var out model.Outcome
	for _, i := range o.Issues {
		if i.Location == "" {
			i.Location = prefix
		} else {
			i.Location = prefix + "." + i.Location
		}
		out.Issues = append(out.Issues, i)
	}
	return out
}
