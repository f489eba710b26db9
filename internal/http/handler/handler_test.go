package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicevault/internal/model"
	"invoicevault/internal/pdf"
	"invoicevault/internal/service"
	serviceMocks "invoicevault/internal/service/mocks"
)

var (
	testToken = strings.Repeat("ab", 32)
	nopLog    = zerolog.Nop()
)

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func postJSON(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestSubmitInvoice(t *testing.T) {
	mockSvc := new(serviceMocks.MockInvoiceService)
	app := fiber.New()
	app.Post("/invoices", SubmitInvoice(mockSvc, nopLog))

	doc := model.DocumentRecord{Type: model.Coding{Code: model.TypeInvoice}}

	t.Run("created", func(t *testing.T) {
		res := &service.SubmitResult{Transformed: &model.DocumentRecord{ID: testToken}}
		mockSvc.On("Submit", mock.Anything, mock.MatchedBy(func(s service.Submission) bool {
			return s.Mode == service.ModeNormal && s.Enrich && s.Main.Type.Code == model.TypeInvoice
		})).Return(res, nil).Once()

		resp := postJSON(t, app, http.MethodPost, "/invoices", SubmitRequest{Document: doc})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "/invoices/"+testToken, resp.Header.Get("Location"))
		var got service.SubmitResult
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, testToken, got.Transformed.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("test mode without enrichment", func(t *testing.T) {
		mockSvc.On("Submit", mock.Anything, mock.MatchedBy(func(s service.Submission) bool {
			return s.Mode == service.ModeTest && !s.Enrich
		})).Return(&service.SubmitResult{}, nil).Once()

		resp := postJSON(t, app, http.MethodPost, "/invoices?mode=test&enrich=false", SubmitRequest{Document: doc})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name: "validation failure",
			err: &service.ValidationError{Outcome: model.Outcome{Issues: []model.Issue{
				{Severity: model.SeverityError, Message: "required", Location: "content[0].invoice.id"},
			}}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION_FAILED",
		},
		{name: "invalid mode", err: service.ErrInvalidMode, wantStatus: http.StatusBadRequest, wantCode: "INVALID_MODE"},
		{
			name:       "pdf failure",
			err:        &service.InternalError{Stage: "enrich pdf", Err: &pdf.Error{Step: "rasterize", Err: errors.New("bad page")}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "PDF_UNPROCESSABLE",
		},
		{name: "store failure", err: &service.InternalError{Stage: "store binary", Err: errors.New("minio down")}, wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc.On("Submit", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			resp := postJSON(t, app, http.MethodPost, "/invoices", SubmitRequest{Document: doc})

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decodeError(t, resp)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.NotContains(t, body.Error.Message, "minio")
			if tt.wantCode == "VALIDATION_FAILED" {
				require.Len(t, body.Error.Issues, 1)
				assert.Equal(t, "content[0].invoice.id", body.Error.Issues[0].Location)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestRetrieveInvoice(t *testing.T) {
	mockSvc := new(serviceMocks.MockInvoiceService)
	app := fiber.New()
	app.Get("/invoices/:token", RetrieveInvoice(mockSvc, nopLog))

	t.Run("selectors are forwarded", func(t *testing.T) {
		want := service.Selector{Payload: true, EnrichedPDF: true, Signature: true}
		out := &service.Retrieved{Token: testToken, Signature: []byte("sig")}
		mockSvc.On("Retrieve", mock.Anything, testToken, want).Return(out, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/invoices/"+testToken+"?payload=true&enriched=true&signature=true", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got service.Retrieved
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, []byte("sig"), got.Signature)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Retrieve", mock.Anything, testToken, service.Selector{}).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/invoices/"+testToken, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid token", func(t *testing.T) {
		mockSvc.On("Retrieve", mock.Anything, "nope", service.Selector{}).Return(nil, service.ErrInvalidToken).Once()

		req := httptest.NewRequest(http.MethodGet, "/invoices/nope", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_TOKEN", decodeError(t, resp).Error.Code)
	})
}

func TestChangeStatus(t *testing.T) {
	mockSvc := new(serviceMocks.MockInvoiceService)
	app := fiber.New()
	app.Put("/invoices/:token/status", ChangeStatus(mockSvc, nopLog))

	t.Run("success", func(t *testing.T) {
		meta := &model.Meta{VersionID: 2, Tags: []model.Coding{{System: model.StatusSystem, Code: "done"}}}
		mockSvc.On("ChangeStatus", mock.Anything, testToken, model.StatusDone).Return(meta, nil).Once()

		resp := postJSON(t, app, http.MethodPut, "/invoices/"+testToken+"/status", StatusRequest{Status: model.StatusDone})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got model.Meta
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, 2, got.VersionID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("trashed is terminal", func(t *testing.T) {
		mockSvc.On("ChangeStatus", mock.Anything, testToken, model.StatusOpen).
			Return(nil, &service.ConflictError{Rule: service.RuleTrashedTerminal}).Once()

		resp := postJSON(t, app, http.MethodPut, "/invoices/"+testToken+"/status", StatusRequest{Status: model.StatusOpen})

		assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "PRECONDITION_FAILED", body.Error.Code)
		assert.Equal(t, service.RuleTrashedTerminal, body.Error.Message)
		mockSvc.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		mockSvc.On("ChangeStatus", mock.Anything, testToken, model.Status("archived")).Return(nil, service.ErrInvalidStatus).Once()

		resp := postJSON(t, app, http.MethodPut, "/invoices/"+testToken+"/status", StatusRequest{Status: "archived"})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_STATUS", decodeError(t, resp).Error.Code)
	})

	t.Run("missing status", func(t *testing.T) {
		resp := postJSON(t, app, http.MethodPut, "/invoices/"+testToken+"/status", map[string]string{})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
	})
}

func TestEraseInvoice(t *testing.T) {
	mockSvc := new(serviceMocks.MockInvoiceService)
	app := fiber.New()
	app.Delete("/invoices/:token", EraseInvoice(mockSvc, nopLog))

	t.Run("success", func(t *testing.T) {
		out := &service.EraseResult{Token: testToken, Erased: []string{"DocumentRecord/" + testToken}}
		mockSvc.On("Erase", mock.Anything, testToken).Return(out, nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/invoices/"+testToken, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("requires trashed", func(t *testing.T) {
		mockSvc.On("Erase", mock.Anything, testToken).
			Return(nil, &service.ConflictError{Rule: service.RuleEraseRequiresTrashed}).Once()

		req := httptest.NewRequest(http.MethodDelete, "/invoices/"+testToken, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Erase", mock.Anything, testToken).Return(nil, errors.New("delete error")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/invoices/"+testToken, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRegisterRoutes_Auth(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mockSvc := new(serviceMocks.MockInvoiceService)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, db, mockSvc, "s3cret", nopLog)

	req := httptest.NewRequest(http.MethodGet, "/invoices/"+testToken, nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Error.Code)
	mockSvc.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterRoutes_DevModeActor(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mockSvc := new(serviceMocks.MockInvoiceService)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, db, mockSvc, "", nopLog)

	mockSvc.On("Erase", mock.MatchedBy(func(ctx context.Context) bool {
		return service.ActorFrom(ctx) == "anonymous"
	}), testToken).Return(&service.EraseResult{Token: testToken}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/invoices/"+testToken, nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}
