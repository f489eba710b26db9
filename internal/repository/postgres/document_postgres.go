package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"invoicevault/internal/model"
	"invoicevault/internal/repository"
)

const uniqueViolation = "23505"

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// The full record lives in a JSONB column; kind, type, subject, status and retention
// dates are projected into their own columns for retention jobs and lookups.
type DocumentPostgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type projection struct {
	typeCode       string
	subject        string
	status         string
	changedDate    *time.Time
	nextChangeDate *time.Time
	resource       []byte
}

func project(doc *model.DocumentRecord) (projection, error) {
	res, err := json.Marshal(doc)
	if err != nil {
		return projection{}, fmt.Errorf("marshal record: %w", err)
	}
	p := projection{typeCode: doc.Type.Code, resource: res}
	if doc.Subject != nil {
		p.subject = doc.Subject.Reference
	}
	if s, ok := doc.StatusTag(); ok {
		p.status = string(s)
	}
	if r := doc.Meta.Retention; r != nil {
		p.changedDate = &r.ChangedDate
		p.nextChangeDate = &r.NextChangeDate
	}
	return p, nil
}

// Create inserts a new record row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.DocumentRecord) (*model.DocumentRecord, error) {
	now := r.now()
	out := doc.Clone()
	out.Meta.VersionID = 1
	out.Meta.LastUpdated = now
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	p, err := project(&out)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO document_records
			(id, kind, type_code, subject, status, changed_date, next_change_date, version, resource, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, q,
		out.ID,
		string(out.Kind),
		p.typeCode,
		p.subject,
		p.status,
		p.changedDate,
		p.nextChangeDate,
		p.resource,
		out.CreatedAt,
		now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single record of any kind.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.DocumentRecord, error) {
	const q = `
		SELECT id, kind, version, resource, created_at, updated_at
		FROM document_records
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// FindTransformed fetches the transformed record identified by token.
func (r *DocumentPostgres) FindTransformed(ctx context.Context, token string) (*model.DocumentRecord, error) {
	const q = `
		SELECT id, kind, version, resource, created_at, updated_at
		FROM document_records
		WHERE id = $1 AND kind = 'transformed'
	`
	return r.scanOne(r.db.QueryRowContext(ctx, q, token))
}

// TokenExists reports whether a transformed record carries token.
func (r *DocumentPostgres) TokenExists(ctx context.Context, token string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM document_records WHERE id = $1 AND kind = 'transformed')`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, token).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Update writes the whole record in a single statement guarded by its version.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.DocumentRecord) (*model.DocumentRecord, error) {
	now := r.now()
	out := doc.Clone()
	out.Meta.VersionID = doc.Meta.VersionID + 1
	out.Meta.LastUpdated = now
	p, err := project(&out)
	if err != nil {
		return nil, err
	}

	const q = `
		UPDATE document_records
		SET type_code = $2, subject = $3, status = $4, changed_date = $5, next_change_date = $6,
		    resource = $7, version = version + 1, updated_at = $8
		WHERE id = $1 AND version = $9
	`
	res, err := r.db.ExecContext(ctx, q,
		out.ID,
		p.typeCode,
		p.subject,
		p.status,
		p.changedDate,
		p.nextChangeDate,
		p.resource,
		now,
		doc.Meta.VersionID,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		var exists bool
		const qExists = `SELECT EXISTS (SELECT 1 FROM document_records WHERE id = $1)`
		if err := r.db.QueryRowContext(ctx, qExists, out.ID).Scan(&exists); err != nil {
			return nil, err
		}
		if exists {
			return nil, repository.ErrVersionConflict
		}
		return nil, repository.ErrNotFound
	}
	return &out, nil
}

// Delete removes a record by id.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM document_records WHERE id = $1`
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

func (r *DocumentPostgres) scanOne(row *sql.Row) (*model.DocumentRecord, error) {
	var (
		id, kind  string
		version   int
		resource  []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &kind, &version, &resource, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var d model.DocumentRecord
	if err := json.Unmarshal(resource, &d); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	d.ID = id
	d.Kind = model.RecordKind(kind)
	d.Meta.VersionID = version
	d.Meta.LastUpdated = updatedAt
	d.CreatedAt = createdAt
	return &d, nil
}
