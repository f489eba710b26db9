package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicevault/internal/model"
	"invoicevault/internal/repository"
)

func TestDocuments_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewDocuments()

	doc := &model.DocumentRecord{ID: "tok", Kind: model.KindTransformed}
	created, err := s.Create(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, created.Meta.VersionID)

	_, err = s.Create(ctx, doc)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	exists, err := s.TokenExists(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, exists)

	created.SetStatusTag(model.StatusDone)
	updated, err := s.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Meta.VersionID)

	_, err = s.Update(ctx, created)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	require.NoError(t, s.Delete(ctx, "tok"))
	assert.ErrorIs(t, s.Delete(ctx, "tok"), repository.ErrNotFound)
	_, err = s.FindTransformed(ctx, "tok")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDocuments_FindTransformedIgnoresOtherKinds(t *testing.T) {
	ctx := context.Background()
	s := NewDocuments()
	_, err := s.Create(ctx, &model.DocumentRecord{ID: "orig", Kind: model.KindOriginal})
	require.NoError(t, err)

	_, err = s.FindTransformed(ctx, "orig")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	exists, _ := s.TokenExists(ctx, "orig")
	assert.False(t, exists)
}

func TestDocuments_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewDocuments()
	_, err := s.Create(ctx, &model.DocumentRecord{ID: "a", Content: []model.ContentSlot{{Data: []byte("x")}}})
	require.NoError(t, err)

	got, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	got.Content[0].Data[0] = 'y'

	again, _ := s.FindByID(ctx, "a")
	assert.Equal(t, []byte("x"), again.Content[0].Data)
}

func TestBinaries_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := NewBinaries()

	b, err := s.Save(ctx, "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Len(t, b.Checksum, 64)

	got, err := s.Load(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), got.Data)

	require.NoError(t, s.Delete(ctx, b.ID))
	_, err = s.Load(ctx, b.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPayloads_CreateFind(t *testing.T) {
	ctx := context.Background()
	s := NewPayloads()

	p, err := s.Create(ctx, &model.Payload{ContentType: "application/json", Raw: []byte("{}")})
	require.NoError(t, err)
	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), got.Raw)
	assert.Equal(t, 1, s.Len())
}
