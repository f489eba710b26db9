package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"invoicevault/internal/model"
	"invoicevault/internal/repository"
)

// PayloadPostgres is a PostgreSQL implementation of repository.PayloadRepository.
// The submitted bytes are kept verbatim in raw; the parsed invoice is stored as JSONB.
type PayloadPostgres struct {
	db *sql.DB
}

// NewPayloadPostgres creates a new PayloadPostgres repository.
func NewPayloadPostgres(db *sql.DB) *PayloadPostgres {
	return &PayloadPostgres{db: db}
}

var _ repository.PayloadRepository = (*PayloadPostgres)(nil)

// Create inserts a payload, assigning an id and creation time when missing.
func (r *PayloadPostgres) Create(ctx context.Context, p *model.Payload) (*model.Payload, error) {
	out := *p
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	var inv []byte
	if out.Invoice != nil {
		b, err := json.Marshal(out.Invoice)
		if err != nil {
			return nil, fmt.Errorf("marshal invoice: %w", err)
		}
		inv = b
	}

	const q = `
		INSERT INTO invoice_payloads (id, content_type, raw, invoice, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, q, out.ID, out.ContentType, out.Raw, inv, out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a payload by id.
func (r *PayloadPostgres) FindByID(ctx context.Context, id string) (*model.Payload, error) {
	const q = `
		SELECT id, content_type, raw, invoice, created_at
		FROM invoice_payloads
		WHERE id = $1
	`
	var (
		p   model.Payload
		inv []byte
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.ContentType, &p.Raw, &inv, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if len(inv) > 0 {
		p.Invoice = &model.Invoice{}
		if err := json.Unmarshal(inv, p.Invoice); err != nil {
			return nil, fmt.Errorf("unmarshal invoice %s: %w", id, err)
		}
	}
	return &p, nil
}

// Delete removes a payload by id.
func (r *PayloadPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM invoice_payloads WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
