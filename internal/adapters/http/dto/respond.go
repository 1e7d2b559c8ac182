package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
)

// TraceIDKey is the gin context key under which middleware stores the trace ID.
const TraceIDKey = "trace_id"

// GetTraceID extracts the trace ID from the gin context.
// The context value set by middleware takes precedence over the
// X-Request-ID header. Returns "" when neither is present.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(TraceIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}

		return ""
	}

	return c.GetHeader("X-Request-ID")
}

// HandleError maps a domain error to an HTTP error response and writes it.
// Unknown errors are reported as 500 with a generic message so internals
// don't leak to callers.
func HandleError(c *gin.Context, err error) {
	status, resp := errorResponseFor(err)
	c.JSON(status, resp.WithTraceID(GetTraceID(c)))
}

func errorResponseFor(err error) (int, *ErrorResponse) {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsInvalidAmount(err):
		return http.StatusBadRequest, NewErrorResponse(ErrorCodeInvalidAmount, err.Error())

	case domain.IsBidTooLow(err):
		return http.StatusConflict, NewErrorResponse(ErrorCodeBidTooLow, err.Error())

	case domain.IsConflict(err):
		return http.StatusConflict, NewErrorResponse(ErrorCodeConflict, err.Error())

	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Error.Details = map[string]string{
				validationErr.Field: validationErr.Message,
			}
		}

		return http.StatusBadRequest, resp

	case domain.IsForbidden(err):
		return http.StatusForbidden, NewErrorResponse(ErrorCodeForbidden, err.Error())

	case domain.IsUnavailable(err):
		// Which dependency failed is an operational detail, not something
		// callers can act on.
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeUnavailable,
			"service temporarily unavailable",
		)

	default:
		return http.StatusInternalServerError, NewErrorResponse(
			ErrorCodeInternal,
			"an internal error occurred",
		)
	}
}
