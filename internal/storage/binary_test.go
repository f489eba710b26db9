package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicevault/internal/repository"
	"invoicevault/internal/storage"
	storeMocks "invoicevault/internal/storage/mocks"
)

// sha256("hello")
const helloSum = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestBinaryStore_Save(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		data       []byte
		maxSize    int64
		setupMocks func(m *storeMocks.MockStorage)
		wantErr    error
		wantErrMsg string
	}{
		{
			name:    "happy path",
			data:    []byte("hello"),
			maxSize: 10,
			setupMocks: func(m *storeMocks.MockStorage) {
				m.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "binaries/")
				}), mock.Anything, storage.PutObjectOptions{
					Size:        5,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"sha256": helloSum},
				}).Return(storage.ObjectInfo{Size: 5}, nil)
			},
		},
		{
			name:       "too large",
			data:       []byte("hello world"),
			maxSize:    5,
			setupMocks: func(m *storeMocks.MockStorage) {},
			wantErr:    storage.ErrTooLarge,
		},
		{
			name: "upload error",
			data: []byte("hello"),
			setupMocks: func(m *storeMocks.MockStorage) {
				m.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload binary: storage fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(storeMocks.MockStorage)
			tt.setupMocks(m)
			s := storage.NewBinaryStore(m, tt.maxSize)

			b, err := s.Save(ctx, "application/pdf", tt.data)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, b.ID)
				assert.Equal(t, helloSum, b.Checksum)
				assert.Equal(t, int64(5), b.Size)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestBinaryStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("verifies checksum", func(t *testing.T) {
		m := new(storeMocks.MockStorage)
		m.On("Get", ctx, "binaries/b1").Return(io.NopCloser(strings.NewReader("hello")), storage.ObjectInfo{
			ContentType: "application/pdf",
			Metadata:    map[string]string{"Sha256": helloSum},
		}, nil)

		b, err := storage.NewBinaryStore(m, 0).Load(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), b.Data)
		assert.Equal(t, "application/pdf", b.ContentType)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		m := new(storeMocks.MockStorage)
		m.On("Get", ctx, "binaries/b1").Return(io.NopCloser(strings.NewReader("tampered")), storage.ObjectInfo{
			Metadata: map[string]string{"sha256": helloSum},
		}, nil)

		_, err := storage.NewBinaryStore(m, 0).Load(ctx, "b1")
		assert.ErrorContains(t, err, "checksum mismatch")
	})

	t.Run("not found", func(t *testing.T) {
		m := new(storeMocks.MockStorage)
		m.On("Get", ctx, "binaries/missing").Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)

		_, err := storage.NewBinaryStore(m, 0).Load(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestBinaryStore_Delete(t *testing.T) {
	ctx := context.Background()
	m := new(storeMocks.MockStorage)
	m.On("Delete", ctx, "binaries/b1").Return(nil)
	m.On("Delete", ctx, "binaries/b2").Return(errors.New("boom"))

	s := storage.NewBinaryStore(m, 0)
	assert.NoError(t, s.Delete(ctx, "b1"))
	assert.EqualError(t, s.Delete(ctx, "b2"), "delete binary: boom")
}
