package middleware

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"invoicevault/internal/logging"
)

// Logger logs each HTTP request as one JSON line on stdout.
// Fields: request_id, method, path, status, latency (milliseconds), actor.
func Logger(loc *time.Location) fiber.Handler {
	return LoggerWithWriter(os.Stdout, loc)
}

// LoggerWithWriter is Logger with an explicit sink.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	log := logging.NewWithWriter(w, "info", loc)
	return RequestLogger(log)
}

// RequestLogger logs requests through an existing logger.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		rid, _ := c.Locals(RequestIDLocalKey).(string)

		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev = ev.Str("request_id", rid).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Float64("latency", float64(time.Since(start).Microseconds())/1000)
		if actor, ok := c.Locals(ActorLocalKey).(string); ok && actor != "" {
			ev = ev.Str("actor", actor)
		}
		ev.Send()

		return err
	}
}
