package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"invoicevault/internal/model"
	"invoicevault/internal/repository"
)

const (
	binaryPrefix   = "binaries/"
	checksumHeader = "sha256"
)

// BinaryStore keeps Binary Content Objects in object storage under binaries/<id>.
// It implements repository.BinaryRepository.
type BinaryStore struct {
	store   Storage
	maxSize int64
}

// NewBinaryStore wraps store. Objects larger than maxSize are rejected; zero disables the cap.
func NewBinaryStore(store Storage, maxSize int64) *BinaryStore {
	return &BinaryStore{store: store, maxSize: maxSize}
}

var _ repository.BinaryRepository = (*BinaryStore)(nil)

// ErrTooLarge is returned by Save when data exceeds the configured cap.
var ErrTooLarge = errors.New("binary exceeds maximum size")

func binaryKey(id string) string { return binaryPrefix + id }

// Save uploads data with its sha256 checksum recorded as object metadata.
func (s *BinaryStore) Save(ctx context.Context, contentType string, data []byte) (*model.Binary, error) {
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, ErrTooLarge
	}
	id := uuid.NewString()
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	info, err := s.store.Put(ctx, binaryKey(id), bytes.NewReader(data), PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata:    map[string]string{checksumHeader: checksum},
	})
	if err != nil {
		return nil, fmt.Errorf("upload binary: %w", err)
	}
	return &model.Binary{
		ID:          id,
		ContentType: contentType,
		Size:        info.Size,
		Checksum:    checksum,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Load downloads the object and verifies its checksum when one was recorded.
func (s *BinaryStore) Load(ctx context.Context, id string) (*model.Binary, error) {
	rc, info, err := s.store.Get(ctx, binaryKey(id))
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("download binary: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read binary: %w", err)
	}
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	if want := lookupChecksum(info.Metadata); want != "" && want != checksum {
		return nil, fmt.Errorf("binary %s: checksum mismatch", id)
	}
	return &model.Binary{
		ID:          id,
		ContentType: info.ContentType,
		Size:        int64(len(data)),
		Checksum:    checksum,
		Data:        data,
		CreatedAt:   info.LastModified,
	}, nil
}

// Delete removes the object.
func (s *BinaryStore) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, binaryKey(id)); err != nil {
		return fmt.Errorf("delete binary: %w", err)
	}
	return nil
}

// lookupChecksum tolerates the canonicalised header casing S3 returns for user metadata.
func lookupChecksum(md map[string]string) string {
	for _, k := range []string{checksumHeader, "Sha256", "X-Amz-Meta-Sha256"} {
		if v, ok := md[k]; ok {
			return v
		}
	}
	return ""
}
