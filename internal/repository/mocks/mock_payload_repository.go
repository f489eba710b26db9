package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicevault/internal/model"
)

type MockPayloadRepository struct {
	mock.Mock
}

func (m *MockPayloadRepository) Create(ctx context.Context, p *model.Payload) (*model.Payload, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payload), args.Error(1)
}

func (m *MockPayloadRepository) FindByID(ctx context.Context, id string) (*model.Payload, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payload), args.Error(1)
}

func (m *MockPayloadRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
