// Package memory provides in-process repositories for local runs and tests.
// All stores are safe for concurrent use and hand out deep copies.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoicevault/internal/model"
	"invoicevault/internal/repository"
)

// Documents is an in-memory repository.DocumentRepository.
type Documents struct {
	mu      sync.RWMutex
	records map[string]model.DocumentRecord
}

// NewDocuments returns an empty document store.
func NewDocuments() *Documents {
	return &Documents{records: make(map[string]model.DocumentRecord)}
}

var _ repository.DocumentRepository = (*Documents)(nil)

func (s *Documents) Create(_ context.Context, doc *model.DocumentRecord) (*model.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[doc.ID]; ok {
		return nil, repository.ErrDuplicate
	}
	now := time.Now().UTC()
	out := doc.Clone()
	out.Meta.VersionID = 1
	out.Meta.LastUpdated = now
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	s.records[out.ID] = out.Clone()
	return &out, nil
}

func (s *Documents) FindByID(_ context.Context, id string) (*model.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := d.Clone()
	return &out, nil
}

func (s *Documents) FindTransformed(ctx context.Context, token string) (*model.DocumentRecord, error) {
	d, err := s.FindByID(ctx, token)
	if err != nil {
		return nil, err
	}
	if d.Kind != model.KindTransformed {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (s *Documents) TokenExists(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.records[token]
	return ok && d.Kind == model.KindTransformed, nil
}

func (s *Documents) Update(_ context.Context, doc *model.DocumentRecord) (*model.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[doc.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if cur.Meta.VersionID != doc.Meta.VersionID {
		return nil, repository.ErrVersionConflict
	}
	out := doc.Clone()
	out.Meta.VersionID = cur.Meta.VersionID + 1
	out.Meta.LastUpdated = time.Now().UTC()
	s.records[out.ID] = out.Clone()
	return &out, nil
}

func (s *Documents) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Len returns the number of stored records.
func (s *Documents) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// PingContext always succeeds; it lets the store back the readiness probe.
func (s *Documents) PingContext(context.Context) error { return nil }

// Payloads is an in-memory repository.PayloadRepository.
type Payloads struct {
	mu       sync.RWMutex
	payloads map[string]model.Payload
}

// NewPayloads returns an empty payload store.
func NewPayloads() *Payloads {
	return &Payloads{payloads: make(map[string]model.Payload)}
}

var _ repository.PayloadRepository = (*Payloads)(nil)

func (s *Payloads) Create(_ context.Context, p *model.Payload) (*model.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *p
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	out.Raw = append([]byte(nil), p.Raw...)
	s.payloads[out.ID] = out
	return &out, nil
}

func (s *Payloads) FindByID(_ context.Context, id string) (*model.Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payloads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Raw = append([]byte(nil), p.Raw...)
	return &p, nil
}

func (s *Payloads) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payloads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.payloads, id)
	return nil
}

// Len returns the number of stored payloads.
func (s *Payloads) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payloads)
}

// Binaries is an in-memory repository.BinaryRepository.
type Binaries struct {
	mu      sync.RWMutex
	objects map[string]model.Binary
}

// NewBinaries returns an empty binary store.
func NewBinaries() *Binaries {
	return &Binaries{objects: make(map[string]model.Binary)}
}

var _ repository.BinaryRepository = (*Binaries)(nil)

func (s *Binaries) Save(_ context.Context, contentType string, data []byte) (*model.Binary, error) {
	sum := sha256.Sum256(data)
	b := model.Binary{
		ID:          uuid.NewString(),
		ContentType: contentType,
		Size:        int64(len(data)),
		Checksum:    hex.EncodeToString(sum[:]),
		Data:        append([]byte(nil), data...),
		CreatedAt:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.objects[b.ID] = b
	s.mu.Unlock()
	return &b, nil
}

func (s *Binaries) Load(_ context.Context, id string) (*model.Binary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b.Data = append([]byte(nil), b.Data...)
	return &b, nil
}

func (s *Binaries) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.objects, id)
	return nil
}

// Len returns the number of stored objects.
func (s *Binaries) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
