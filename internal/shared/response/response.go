package response

import (
	"errors"
	"net/http"

	"library-backend/internal/shared/errs"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type Meta struct {
	CurrentPage int `json:"currentPage,omitempty"`
	PageSize    int `json:"pageSize,omitempty"`
	TotalPages  int `json:"totalPages"`
	Total       int `json:"total"`
}

// Success responses
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Error responses
func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	ErrorWithDetails(c, statusCode, code, message, nil)
}

func ErrorWithDetails(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHENTICATED", message)
}

func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message)
}

func TooManyRequests(c *gin.Context) {
	ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
}

func InternalServerError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message)
}

var kindStatus = map[errs.Kind]int{
	errs.KindNotFound:        http.StatusNotFound,
	errs.KindConflict:        http.StatusConflict,
	errs.KindUnauthenticated: http.StatusUnauthorized,
	errs.KindForbidden:       http.StatusForbidden,
	errs.KindInvalid:         http.StatusBadRequest,
	errs.KindUnavailable:     http.StatusServiceUnavailable,
}

// Fail writes err using the status mapped from its errs.Kind.
// Infrastructure faults get Retry-After, foreign errors become a 500
// without leaking their text.
func Fail(c *gin.Context, err error) {
	var appErr *errs.Error
	if !errors.As(err, &appErr) {
		log.Error().
			Str("request_id", c.GetString("request_id")).
			Err(err).
			Msg("unhandled error")
		InternalServerError(c, "internal server error")
		return
	}

	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := appErr.Message
	if appErr.Kind == errs.KindUnavailable {
		log.Error().
			Str("request_id", c.GetString("request_id")).
			Str("code", appErr.Code).
			Err(err).
			Msg("infrastructure failure")
		c.Header("Retry-After", "5")
		message = "service temporarily unavailable"
	}

	ErrorWithDetails(c, status, appErr.Code, message, appErr.Details)
}
