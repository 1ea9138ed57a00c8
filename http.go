package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

const (
	// LocalsClaimsKey holds the verified *AccessClaims of a request
	LocalsClaimsKey = "user"
	// LocalsTokenKey holds the raw bearer token of a request
	LocalsTokenKey = "token"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse is the body of requests that only report success
type MessageResponse struct {
	Message string `json:"message"`
}

// NewErrorHandler returns a fiber error handler that maps errors to their
// status code and an ErrorResponse body. Internal failures are logged and
// their details kept out of the response.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Error:   strings.ToUpper(strings.ReplaceAll(statusText(fiberErr.Code), " ", "_")),
				Message: fiberErr.Message,
			})
		}

		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		status := HTTPStatus(richErr)
		if status >= fiber.StatusInternalServerError {
			logger.Error(
				"request failed",
				"path", c.OriginalURL(),
				"error", err.Error(),
				"category", richErr.Category,
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
			return c.Status(status).JSON(ErrorResponse{
				Error:   "INTERNAL_ERROR",
				Message: "An unexpected server error occurred",
			})
		}

		logger.Debug("request rejected", "path", c.OriginalURL(), "text_code", richErr.TextCode, "status", status)

		code := richErr.TextCode
		if code == "" {
			code = strings.ToUpper(fmt.Sprint(richErr.Category))
		}

		return c.Status(status).JSON(ErrorResponse{
			Error:   code,
			Message: richErr.Message,
		})
	}
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Error"
}

// BearerToken reads the token from the Authorization header without
// verifying it. Returns "" when the header is missing or uses another
// scheme.
func BearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	const scheme = "bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return ""
	}
	return strings.TrimSpace(header[len(scheme):])
}

func tokenFromLocals(c *fiber.Ctx) string {
	if token, ok := c.Locals(LocalsTokenKey).(string); ok && token != "" {
		return token
	}
	return BearerToken(c)
}
