package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"invoicevault/internal/audit"
	"invoicevault/internal/model"
	"invoicevault/internal/pdf"
	"invoicevault/internal/repository"
	"invoicevault/internal/seal"
	"invoicevault/internal/validation"
)

// InvoiceService defines the invoice use cases.
type InvoiceService interface {
	// Submit runs the transformation pipeline. In test mode nothing is persisted
	// and only the validation outcome is returned.
	Submit(ctx context.Context, sub Submission) (*SubmitResult, error)

	// Retrieve returns the selected parts of the record identified by token.
	Retrieve(ctx context.Context, token string, sel Selector) (*Retrieved, error)

	// ChangeStatus moves the record to target and returns the updated metadata.
	ChangeStatus(ctx context.Context, token string, target model.Status) (*model.Meta, error)

	// Erase deletes a trashed record and everything it references.
	Erase(ctx context.Context, token string) (*EraseResult, error)
}

// TokenIssuer hands out public tokens. *token.Generator implements it.
type TokenIssuer interface {
	Generate(ctx context.Context) (string, error)
	Release(ctx context.Context, token string) error
	MaxAttempts() int
}

// Enricher stamps a token onto a PDF. *pdf.Enricher implements it.
type Enricher interface {
	Enrich(src []byte, token string, payload pdf.Payload) ([]byte, error)
}

// Dependencies wires an InvoiceService. Audit, Metrics and Clock are optional.
type Dependencies struct {
	Documents      repository.DocumentRepository
	Payloads       repository.PayloadRepository
	Binaries       repository.BinaryRepository
	Validator      validation.Validator
	Tokens         TokenIssuer
	Enricher       Enricher
	Sealer         seal.Sealer
	Audit          audit.Sink
	Metrics        *Metrics
	Log            zerolog.Logger
	MaxContentSize int64
	Clock          func() time.Time
}

type invoiceService struct {
	docs        repository.DocumentRepository
	payloads    repository.PayloadRepository
	binaries    repository.BinaryRepository
	validator   validation.Validator
	classifier  *Classifier
	attachments *AttachmentProcessor
	tokens      TokenIssuer
	enricher    Enricher
	sealer      seal.Sealer
	audit       audit.Sink
	metrics     *Metrics
	log         zerolog.Logger
	now         func() time.Time
}

// NewInvoiceService constructs a new InvoiceService.
func NewInvoiceService(d Dependencies) InvoiceService {
	log := d.Log.With().Str("component", "invoice").Logger()
	s := &invoiceService{
		docs:        d.Documents,
		payloads:    d.Payloads,
		binaries:    d.Binaries,
		validator:   d.Validator,
		classifier:  NewClassifier(d.Validator, d.Payloads, d.MaxContentSize),
		attachments: NewAttachmentProcessor(d.Validator, d.Documents, d.Binaries, d.MaxContentSize, log),
		tokens:      d.Tokens,
		enricher:    d.Enricher,
		sealer:      d.Sealer,
		audit:       d.Audit,
		metrics:     d.Metrics,
		log:         log,
		now:         d.Clock,
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type actorKey struct{}

// WithActor attaches the authenticated caller identity to ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the caller identity stored by WithActor.
func ActorFrom(ctx context.Context) string {
	s, _ := ctx.Value(actorKey{}).(string)
	return s
}

func (s *invoiceService) find(ctx context.Context, tok string) (*model.DocumentRecord, error) {
	rec, err := s.docs.FindTransformed(ctx, tok)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, internal("load record", err)
	}
	return rec, nil
}

func (s *invoiceService) record(ctx context.Context, action audit.Action, tok, recordID string, err error) {
	e := audit.Event{
		Action:   action,
		Token:    tok,
		RecordID: recordID,
		Actor:    ActorFrom(ctx),
		Result:   resultLabel(err),
		Time:     s.now(),
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		e.Detail = ce.Rule
	}
	s.audit.Record(ctx, e)
}
