package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guiperry/moneymanager/chain"
	"github.com/guiperry/moneymanager/llm"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// classify maps a pipeline error to an HTTP status and a stable error code.
// Cancellation wins over the provider kind that carries it.
func classify(err error) (int, string) {
	var llmErr *llm.LLMError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, llm.ErrRateLimit):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, llm.ErrProvider):
		return http.StatusBadGateway, "provider_error"
	case errors.Is(err, llm.ErrMissingVariable),
		errors.Is(err, llm.ErrInvalidTemplate),
		errors.Is(err, chain.ErrUnsatisfiedDependency):
		return http.StatusBadRequest, "invalid_input"
	case errors.As(err, &llmErr) && llmErr.Type == llm.ErrorTypeInvalidInput:
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
