package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/swap-tracker/internal/engine"
	"github.com/rickgao/swap-tracker/internal/registry"
	"github.com/rickgao/swap-tracker/internal/tracker"
)

// Response is the envelope for every endpoint.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInvalidAmount = "INVALID_AMOUNT"
	ErrCodeEngine        = "ENGINE_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

func success(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   &Error{Code: code, Message: message},
	})
}

// handleError maps tracker and engine errors onto HTTP statuses.
func handleError(c *gin.Context, err error) {
	var engErr *engine.Error
	switch {
	case errors.Is(err, engine.ErrInvalidAmount):
		fail(c, http.StatusBadRequest, ErrCodeInvalidAmount, err.Error())
	case errors.Is(err, tracker.ErrMissingAddress),
		errors.Is(err, tracker.ErrMissingCurrency),
		errors.Is(err, tracker.ErrSameCurrency):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, engine.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, tracker.ErrStopped):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
	case errors.As(err, &engErr):
		fail(c, http.StatusBadGateway, ErrCodeEngine, engErr.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "an unexpected error occurred")
	}
}
