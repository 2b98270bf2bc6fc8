package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"marketapi/internal/apperr"
	"marketapi/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response. message must be safe
// to show to callers.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

type mapping struct {
	status int
	code   string
	msg    string
}

var byKind = map[apperr.Kind]mapping{
	apperr.KindAuth:       {fiber.StatusForbidden, "AUTH_FAILED", "authentication failed"},
	apperr.KindForbidden:  {fiber.StatusForbidden, "FORBIDDEN", "forbidden"},
	apperr.KindValidation: {fiber.StatusBadRequest, "VALIDATION_FAILED", "invalid request"},
	apperr.KindConflict:   {fiber.StatusConflict, "CONFLICT", "conflict"},
	apperr.KindNotFound:   {fiber.StatusNotFound, "NOT_FOUND", "resource not found"},
}

// ErrorHandler returns a Fiber global error handler that maps application
// errors onto the error envelope. Store and unclassified errors are logged and
// reported as INTERNAL_ERROR without detail.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if m, ok := byKind[apperr.KindOf(err)]; ok {
			msg := apperr.Message(err)
			if msg == "" {
				msg = m.msg
			}
			return writeError(c, m.status, m.code, msg)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			switch fe.Code {
			case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
				return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "bad request")
			case fiber.StatusNotFound:
				return writeError(c, fe.Code, "NOT_FOUND", "resource not found")
			case fiber.StatusMethodNotAllowed:
				return writeError(c, fe.Code, "METHOD_NOT_ALLOWED", "method not allowed")
			case fiber.StatusRequestEntityTooLarge:
				return writeError(c, fe.Code, "PAYLOAD_TOO_LARGE", "request body too large")
			case fiber.StatusTooManyRequests:
				return writeError(c, fe.Code, "RATE_LIMITED", "too many requests")
			}
		}

		log.Error().Err(err).
			Str("request_id", middleware.RequestIDFrom(c)).
			Str("kind", apperr.KindOf(err).String()).
			Str("path", c.Path()).
			Msg("request failed")
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
