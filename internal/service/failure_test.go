package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicevault/internal/model"
	"invoicevault/internal/repository"
	repoMocks "invoicevault/internal/repository/mocks"
)

func TestSubmit_StoreFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *Dependencies)
		wantStage string
	}{
		{
			name: "payload store",
			mutate: func(d *Dependencies) {
				m := new(repoMocks.MockPayloadRepository)
				m.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
				d.Payloads = m
			},
			wantStage: "persist payload",
		},
		{
			name: "binary store",
			mutate: func(d *Dependencies) {
				m := new(repoMocks.MockBinaryRepository)
				m.On("Save", mock.Anything, "application/pdf", mock.Anything).Return(nil, errors.New("bucket gone"))
				d.Binaries = m
			},
			wantStage: "persist pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.mutate)

			_, err := env.svc.Submit(context.Background(), Submission{Main: invoiceDocument(samplePDF(t)), Mode: ModeNormal, Enrich: true})

			var ie *InternalError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.wantStage, ie.Stage)
			assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics(t).submissions.WithLabelValues("normal", "error")))
		})
	}
}

func TestRetrieve_DanglingPayload(t *testing.T) {
	env := newTestEnv(t)
	res := submit(t, env, Submission{Main: invoiceDocument(samplePDF(t)), Mode: ModeNormal, Enrich: true})

	mPay := new(repoMocks.MockPayloadRepository)
	mPay.On("FindByID", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound).Once()
	broken := newTestEnv(t, func(d *Dependencies) {
		d.Documents = env.docs
		d.Payloads = mPay
		d.Binaries = env.binaries
	})

	_, err := broken.svc.Retrieve(context.Background(), res.Transformed.ID, Selector{Payload: true})

	var ie *InternalError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "load payload", ie.Stage)
	assert.Contains(t, err.Error(), "referenced but missing")
	mPay.AssertExpectations(t)
}

func TestErase_InterruptedCanBeRepeated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := submit(t, env, Submission{Main: invoiceDocument(samplePDF(t)), Mode: ModeNormal, Enrich: true})
	tok := res.Transformed.ID
	_, err := env.svc.ChangeStatus(ctx, tok, model.StatusTrashed)
	require.NoError(t, err)

	mBin := new(repoMocks.MockBinaryRepository)
	mBin.On("Delete", mock.Anything, mock.Anything).Return(errors.New("minio down")).Once()
	broken := newTestEnv(t, func(d *Dependencies) {
		d.Documents = env.docs
		d.Payloads = env.payloads
		d.Binaries = mBin
	})

	_, err = broken.svc.Erase(ctx, tok)
	var ie *InternalError
	require.ErrorAs(t, err, &ie)
	_, err = env.docs.FindByID(ctx, tok)
	require.NoError(t, err, "transformed record survives a failed erase")

	out, err := env.svc.Erase(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "DocumentRecord/"+tok, out.Erased[len(out.Erased)-1])
	assert.Zero(t, env.docs.Len())
	assert.Zero(t, env.binaries.Len())
	mBin.AssertExpectations(t)
}
