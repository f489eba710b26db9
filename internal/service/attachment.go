package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoicevault/internal/model"
	"invoicevault/internal/repository"
	"invoicevault/internal/validation"
)

// ProcessedAttachment is a persisted attachment and its non-blocking messages.
type ProcessedAttachment struct {
	Record  *model.DocumentRecord `json:"record"`
	Outcome model.Outcome         `json:"outcome"`
}

// AttachmentProcessor validates and stores side documents one by one. A
// blocking issue on one attachment skips that attachment only.
type AttachmentProcessor struct {
	validator validation.Validator
	docs      repository.DocumentRepository
	binaries  repository.BinaryRepository
	maxSize   int64
	log       zerolog.Logger
}

// NewAttachmentProcessor creates an AttachmentProcessor. Slots larger than
// maxSize cause the attachment to be skipped.
func NewAttachmentProcessor(v validation.Validator, docs repository.DocumentRepository, binaries repository.BinaryRepository, maxSize int64, log zerolog.Logger) *AttachmentProcessor {
	if maxSize <= 0 {
		maxSize = DefaultMaxContentSize
	}
	return &AttachmentProcessor{validator: v, docs: docs, binaries: binaries, maxSize: maxSize, log: log}
}

// Process stores every acceptable attachment and links it from main. The
// returned outcome holds the issues of skipped attachments, downgraded to
// warnings since they never block the submission. Store failures are returned
// as errors.
func (p *AttachmentProcessor) Process(ctx context.Context, attachments []model.DocumentRecord, mode Mode, main *model.DocumentRecord) ([]ProcessedAttachment, model.Outcome, error) {
	var messages model.Outcome
	if mode != ModeNormal {
		return nil, messages, nil
	}

	var processed []ProcessedAttachment
	for i := range attachments {
		loc := fmt.Sprintf("attachment[%d]", i)
		att := attachments[i].Clone()

		res := p.validator.ValidateAttachment(ctx, &att)
		for j, slot := range att.Content {
			if int64(len(slot.Data)) > p.maxSize {
				res.Add(model.SeverityError, "too-large",
					fmt.Sprintf("content is %d bytes, limit is %d", len(slot.Data), p.maxSize),
					fmt.Sprintf("content[%d]", j))
			}
		}
		errs, warns := res.Split()
		if errs.HasBlocking() {
			p.log.Info().Int("attachment", i).Int("issues", len(errs.Issues)).Msg("attachment skipped")
			messages.Merge(skipped(prefixed(errs, loc)))
			continue
		}

		for j := range att.Content {
			slot := att.Content[j]
			if !slot.Inline() {
				continue
			}
			bin, err := p.binaries.Save(ctx, slot.ContentType, slot.Data)
			if err != nil {
				return nil, messages, internal("persist attachment content", err)
			}
			pointSlotAt(&att, j, model.BinaryURL(bin.ID), bin.Size)
		}

		att.ID = uuid.NewString()
		att.Kind = model.KindAttachment
		att.Meta = model.Meta{Profile: []string{model.ProfileAttachment}}
		if att.Subject == nil && main.Subject != nil {
			s := *main.Subject
			att.Subject = &s
		}
		saved, err := p.docs.Create(ctx, &att)
		if err != nil {
			return nil, messages, internal("persist attachment", err)
		}
		main.RelatesTo = append(main.RelatesTo, model.Link{Code: model.LinkAttachment, Target: model.RecordReference(saved.ID)})
		processed = append(processed, ProcessedAttachment{Record: saved, Outcome: warns})
	}
	return processed, messages, nil
}

func skipped(o model.Outcome) model.Outcome {
	for i := range o.Issues {
		o.Issues[i].Message = "attachment not stored: " + o.Issues[i].Message
		o.Issues[i].Severity = model.SeverityWarning
	}
	return o
}
