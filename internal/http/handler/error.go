package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"invoicevault/internal/http/middleware"
	"invoicevault/internal/model"
	"invoicevault/internal/pdf"
	"invoicevault/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Issues  []model.Issue `json:"issues,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_TOKEN", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeErrorIssues(c, status, code, message, nil)
}

func writeErrorIssues(c *fiber.Ctx, status int, code, message string, issues []model.Issue) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Issues:  issues,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError translates a service error into a response. Internal
// errors are logged with their stage and answered with a generic message.
func writeServiceError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var (
		verr *service.ValidationError
		cerr *service.ConflictError
		perr *pdf.Error
		ierr *service.InternalError
	)
	switch {
	case errors.As(err, &verr):
		return writeErrorIssues(c, fiber.StatusUnprocessableEntity, "VALIDATION_FAILED", verr.Error(), verr.Outcome.Issues)
	case errors.As(err, &cerr):
		return writeError(c, fiber.StatusPreconditionFailed, "PRECONDITION_FAILED", cerr.Rule)
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "invoice not found")
	case errors.Is(err, service.ErrInvalidToken):
		return writeError(c, fiber.StatusBadRequest, "INVALID_TOKEN", "invalid token format")
	case errors.Is(err, service.ErrInvalidStatus):
		return writeError(c, fiber.StatusBadRequest, "INVALID_STATUS", "status must be open, done or trashed")
	case errors.Is(err, service.ErrInvalidMode):
		return writeError(c, fiber.StatusBadRequest, "INVALID_MODE", "mode must be normal or test")
	case errors.As(err, &perr):
		log.Warn().Err(err).Str("request_id", requestIDFromCtx(c)).Msg("pdf processing failed")
		return writeError(c, fiber.StatusUnprocessableEntity, "PDF_UNPROCESSABLE", "pdf could not be processed at step "+perr.Step)
	}

	ev := log.Error().Err(err).Str("request_id", requestIDFromCtx(c))
	if errors.As(err, &ierr) {
		ev = ev.Str("stage", ierr.Stage)
	}
	ev.Msg("request failed")
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", fe.Message)
		case fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", fe.Message)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
