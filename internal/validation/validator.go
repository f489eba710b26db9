// Package validation checks document records and structured invoices and reports
// severity-tagged issues. Callers treat it as a black box returning a model.Outcome.
package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"invoicevault/internal/model"
)

// Validator is the contract consumed by the submission pipeline.
type Validator interface {
	// ValidateDocument checks the shape of a submitted main document.
	ValidateDocument(ctx context.Context, doc *model.DocumentRecord) model.Outcome
	// ValidateAttachment checks an attachment document.
	ValidateAttachment(ctx context.Context, doc *model.DocumentRecord) model.Outcome
	// ValidateInvoice checks a parsed structured invoice.
	ValidateInvoice(ctx context.Context, inv *model.Invoice) model.Outcome
}

var allowedAttachmentTypes = map[string]bool{
	"application/pdf":  true,
	"image/png":        true,
	"image/jpeg":       true,
	"image/tiff":       true,
	"text/plain":       true,
	"application/xml":  true,
	"application/json": true,
}

// RuleValidator is the built-in Validator.
type RuleValidator struct {
	v *validator.Validate
}

// New returns a RuleValidator. Issue locations use the JSON field names.
func New() *RuleValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RuleValidator{v: v}
}

var _ Validator = (*RuleValidator)(nil)

func (r *RuleValidator) ValidateDocument(_ context.Context, doc *model.DocumentRecord) model.Outcome {
	var out model.Outcome
	if doc == nil {
		out.Add(model.SeverityFatal, "required", "document is missing", "")
		return out
	}
	if doc.Type.Code == "" {
		out.Add(model.SeverityError, "required", "document type is required", "type.code")
	}
	if len(doc.Content) == 0 {
		out.Add(model.SeverityError, "required", "at least one content slot is required", "content")
	}
	checkSlots(&out, doc.Content)
	checkExtensions(&out, doc.Extensions)
	if doc.Subject == nil {
		out.Add(model.SeverityWarning, "incomplete", "subject is not declared and will be taken from the structured payload", "subject")
	}
	if doc.Author == nil {
		out.Add(model.SeverityInformation, "incomplete", "author is not declared", "author")
	}
	return out
}

func (r *RuleValidator) ValidateAttachment(_ context.Context, doc *model.DocumentRecord) model.Outcome {
	var out model.Outcome
	if doc == nil {
		out.Add(model.SeverityFatal, "required", "attachment is missing", "")
		return out
	}
	if len(doc.Content) == 0 {
		out.Add(model.SeverityError, "required", "attachment has no content", "content")
	}
	checkSlots(&out, doc.Content)
	checkExtensions(&out, doc.Extensions)
	for i, c := range doc.Content {
		if c.ContentType != "" && !allowedAttachmentTypes[c.MediaType()] {
			out.Add(model.SeverityError, "code-invalid",
				fmt.Sprintf("content type %q is not allowed for attachments", c.ContentType),
				fmt.Sprintf("content[%d].contentType", i))
		}
	}
	return out
}

func checkSlots(out *model.Outcome, slots []model.ContentSlot) {
	for i, c := range slots {
		loc := fmt.Sprintf("content[%d]", i)
		if c.ContentType == "" {
			out.Add(model.SeverityError, "required", "content type is required", loc+".contentType")
		}
		switch {
		case len(c.Data) > 0 && c.URL != "":
			out.Add(model.SeverityError, "invariant", "content carries both data and url", loc)
		case len(c.Data) == 0 && c.URL == "":
			out.Add(model.SeverityError, "required", "content carries neither data nor url", loc)
		}
		if _, _, internal := model.ParseContentURL(c.URL); internal {
			out.Add(model.SeverityError, "security", "content url must not reference stored objects", loc+".url")
		}
	}
}

// checkExtensions rejects extensions in the namespace the pipeline stamps
// on stored records.
func checkExtensions(out *model.Outcome, exts []model.Extension) {
	for i, e := range exts {
		if strings.HasPrefix(e.URL, model.ExtensionPrefix) {
			out.Add(model.SeverityError, "security", "extension is reserved for the pipeline", fmt.Sprintf("extension[%d].url", i))
		}
	}
}

func (r *RuleValidator) ValidateInvoice(_ context.Context, inv *model.Invoice) model.Outcome {
	var out model.Outcome
	if inv == nil {
		out.Add(model.SeverityFatal, "required", "invoice is missing", "")
		return out
	}
	if err := r.v.Struct(inv); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			out.Add(model.SeverityFatal, "exception", err.Error(), "invoice")
			return out
		}
		for _, fe := range verrs {
			out.Add(model.SeverityError, fe.Tag(), describe(fe), location(fe))
		}
	}
	if inv.Payer == nil {
		out.Add(model.SeverityWarning, "incomplete", "no payer declared; the patient is billed directly", "invoice.payer")
	}
	var sum float64
	for _, l := range inv.Lines {
		sum += l.Amount
	}
	if len(inv.Lines) > 0 && math.Abs(sum-inv.Total) > 0.005 {
		out.Add(model.SeverityWarning, "business-rule",
			fmt.Sprintf("line amounts sum to %.2f but total is %.2f", sum, inv.Total), "invoice.total")
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a date in format %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s entries", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed rule %s", fe.Field(), fe.Tag())
	}
}

// location turns "Invoice.lines[0].code" into "invoice.lines[0].code".
func location(fe validator.FieldError) string {
	ns := fe.Namespace()
	if ns == "" {
		return ""
	}
	return strings.ToLower(ns[:1]) + ns[1:]
}
