package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"invoicevault/internal/http/middleware"
	"invoicevault/internal/model"
	"invoicevault/internal/service"
)

// Pinger is satisfied by *sql.DB and by the in-memory store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SubmitRequest is the body of POST /invoices.
type SubmitRequest struct {
	Document    model.DocumentRecord   `json:"document"`
	Attachments []model.DocumentRecord `json:"attachments,omitempty"`
}

// StatusRequest is the body of PUT /invoices/:token/status.
type StatusRequest struct {
	Status model.Status `json:"status"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Invoice
// routes sit behind middleware.Auth with the given secret.
func RegisterRoutes(app *fiber.App, db Pinger, svc service.InvoiceService, jwtSecret string, log zerolog.Logger) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	inv := app.Group("/invoices", middleware.Auth(jwtSecret))
	inv.Post("/", middleware.RequireScope(middleware.ScopeWrite), SubmitInvoice(svc, log))
	inv.Get("/:token", middleware.RequireScope(middleware.ScopeRead), RetrieveInvoice(svc, log))
	inv.Put("/:token/status", middleware.RequireScope(middleware.ScopeManage), ChangeStatus(svc, log))
	inv.Delete("/:token", middleware.RequireScope(middleware.ScopeManage), EraseInvoice(svc, log))
}

// HealthCheck godoc
// @Summary      Readiness probe
// @Description  Checks connectivity to the metadata store.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  errorPayload
// @Router       /health [get]
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe answers 200 while the process is up.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// SubmitInvoice godoc
// @Summary      Submit an invoice document
// @Description  Validates, transforms, enriches and stores a document with its attachments.
// @Description  In test mode the pipeline runs but nothing is persisted.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        mode    query     string         false  "normal or test"  default(normal)
// @Param        enrich  query     bool           false  "stamp the PDF"   default(true)
// @Param        body    body      SubmitRequest  true   "document bundle"
// @Success      201     {object}  service.SubmitResult
// @Success      200     {object}  service.SubmitResult
// @Failure      400     {object}  errorPayload
// @Failure      422     {object}  errorPayload
// @Security     BearerAuth
// @Router       /invoices [post]
func SubmitInvoice(svc service.InvoiceService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SubmitRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON document bundle")
		}

		sub := service.Submission{
			Main:        req.Document,
			Attachments: req.Attachments,
			Mode:        service.Mode(c.Query("mode", string(service.ModeNormal))),
			Enrich:      c.QueryBool("enrich", true),
		}
		res, err := svc.Submit(c.UserContext(), sub)
		if err != nil {
			return writeServiceError(c, log, err)
		}

		status := fiber.StatusCreated
		if res.Transformed == nil {
			status = fiber.StatusOK
		} else {
			c.Location("/invoices/" + res.Transformed.ID)
		}
		return c.Status(status).JSON(res)
	}
}

// RetrieveInvoice godoc
// @Summary      Retrieve an invoice
// @Description  Returns the selected parts. Without any selector only metadata is returned.
// @Tags         invoices
// @Produce      json
// @Param        token      path      string  true   "invoice token"
// @Param        metadata   query     bool    false  "include metadata"
// @Param        payload    query     bool    false  "include structured payload"
// @Param        original   query     bool    false  "include the submitted PDF"
// @Param        enriched   query     bool    false  "include the stamped PDF"
// @Param        signature  query     bool    false  "include the detached seal"
// @Success      200        {object}  service.Retrieved
// @Failure      400        {object}  errorPayload
// @Failure      404        {object}  errorPayload
// @Security     BearerAuth
// @Router       /invoices/{token} [get]
func RetrieveInvoice(svc service.InvoiceService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sel := service.Selector{
			Metadata:    c.QueryBool("metadata"),
			Payload:     c.QueryBool("payload"),
			OriginalPDF: c.QueryBool("original"),
			EnrichedPDF: c.QueryBool("enriched"),
			Signature:   c.QueryBool("signature"),
		}
		res, err := svc.Retrieve(c.UserContext(), c.Params("token"), sel)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(res)
	}
}

// ChangeStatus godoc
// @Summary      Change the lifecycle status
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        token  path      string         true  "invoice token"
// @Param        body   body      StatusRequest  true  "target status"
// @Success      200    {object}  model.Meta
// @Failure      400    {object}  errorPayload
// @Failure      404    {object}  errorPayload
// @Failure      412    {object}  errorPayload
// @Security     BearerAuth
// @Router       /invoices/{token}/status [put]
func ChangeStatus(svc service.InvoiceService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req StatusRequest
		if err := c.BodyParser(&req); err != nil || req.Status == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must carry a status")
		}
		meta, err := svc.ChangeStatus(c.UserContext(), c.Params("token"), req.Status)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(meta)
	}
}

// EraseInvoice godoc
// @Summary      Erase a trashed invoice
// @Description  Deletes the record, its original, attachments and all stored content.
// @Tags         invoices
// @Produce      json
// @Param        token  path      string  true  "invoice token"
// @Success      200    {object}  service.EraseResult
// @Failure      400    {object}  errorPayload
// @Failure      404    {object}  errorPayload
// @Failure      412    {object}  errorPayload
// @Security     BearerAuth
// @Router       /invoices/{token} [delete]
func EraseInvoice(svc service.InvoiceService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Erase(c.UserContext(), c.Params("token"))
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(res)
	}
}
