package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docsign/internal/http/middleware"
	"docsign/internal/model"
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
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// serviceErrors maps service sentinels to responses. Order matters: the specific
// validation errors come before the ErrValidation family they wrap.
var serviceErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{model.ErrInvalidCategory, fiber.StatusBadRequest, "INVALID_CATEGORY", "category is required"},
	{model.ErrUnsafeFilename, fiber.StatusBadRequest, "UNSAFE_FILENAME", "filename is not allowed"},
	{model.ErrInvalidID, fiber.StatusBadRequest, "INVALID_ID", "invalid id"},
	{model.ErrValidation, fiber.StatusBadRequest, "BAD_REQUEST", "bad request"},
	{model.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "resource not found"},
	{model.ErrIO, fiber.StatusInternalServerError, "FILE_STORE_ERROR", "file store error"},
	{model.ErrStorage, fiber.StatusInternalServerError, "REGISTRY_ERROR", "registry error"},
}

// writeServiceError translates an error returned by the service layer.
func writeServiceError(c *fiber.Ctx, err error) error {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return writeError(c, m.status, m.code, m.message)
		}
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			return writeServiceError(c, err)
		}

		switch fe.Code {
		case fiber.StatusBadRequest:
			return writeError(c, fe.Code, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, fe.Code, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, fe.Code, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, fe.Code, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, fe.Code, "INTERNAL_ERROR", "internal server error")
		}
	}
}
