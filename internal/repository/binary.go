package repository

import (
	"context"

	"invoicevault/internal/model"
)

// BinaryRepository stores Binary Content Objects.
type BinaryRepository interface {
	// Save persists data under a new id.
	Save(ctx context.Context, contentType string, data []byte) (*model.Binary, error)
	// Load returns the object including its bytes.
	Load(ctx context.Context, id string) (*model.Binary, error)
	Delete(ctx context.Context, id string) error
}
