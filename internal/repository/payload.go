package repository

import (
	"context"

	"invoicevault/internal/model"
)

// PayloadRepository stores Structured Invoice Payloads.
type PayloadRepository interface {
	Create(ctx context.Context, p *model.Payload) (*model.Payload, error)
	FindByID(ctx context.Context, id string) (*model.Payload, error)
	Delete(ctx context.Context, id string) error
}
