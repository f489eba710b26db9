package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicevault/internal/model"
	"invoicevault/internal/service"
)

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Submit(ctx context.Context, sub service.Submission) (*service.SubmitResult, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *MockInvoiceService) Retrieve(ctx context.Context, token string, sel service.Selector) (*service.Retrieved, error) {
	args := m.Called(ctx, token, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Retrieved), args.Error(1)
}

func (m *MockInvoiceService) ChangeStatus(ctx context.Context, token string, target model.Status) (*model.Meta, error) {
	args := m.Called(ctx, token, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meta), args.Error(1)
}

func (m *MockInvoiceService) Erase(ctx context.Context, token string) (*service.EraseResult, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EraseResult), args.Error(1)
}

var _ service.InvoiceService = (*MockInvoiceService)(nil)
