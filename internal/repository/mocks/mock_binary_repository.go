package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicevault/internal/model"
)

type MockBinaryRepository struct {
	mock.Mock
}

func (m *MockBinaryRepository) Save(ctx context.Context, contentType string, data []byte) (*model.Binary, error) {
	args := m.Called(ctx, contentType, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Binary), args.Error(1)
}

func (m *MockBinaryRepository) Load(ctx context.Context, id string) (*model.Binary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Binary), args.Error(1)
}

func (m *MockBinaryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
