package repository

import (
	"context"

	"invoicevault/internal/model"
)

// DocumentRepository defines data access for document records.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new record. The id must be set by the caller.
	// Returns ErrDuplicate if a record with the same id already exists.
	Create(ctx context.Context, doc *model.DocumentRecord) (*model.DocumentRecord, error)

	// FindByID returns a record of any kind by its id.
	FindByID(ctx context.Context, id string) (*model.DocumentRecord, error)

	// FindTransformed returns the transformed record identified by token.
	FindTransformed(ctx context.Context, token string) (*model.DocumentRecord, error)

	// TokenExists reports whether a transformed record already carries token.
	TokenExists(ctx context.Context, token string) (bool, error)

	// Update replaces the whole record in one write. doc.Meta.VersionID must match
	// the stored version; the returned record carries the incremented version.
	Update(ctx context.Context, doc *model.DocumentRecord) (*model.DocumentRecord, error)

	// Delete removes a record by id. Returns ErrNotFound if nothing was deleted.
	Delete(ctx context.Context, id string) error
}
