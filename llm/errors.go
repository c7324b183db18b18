package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guiperry/moneymanager/utils"
)

// ErrorType represents the type of an error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeProvider
	ErrorTypeRequest
	ErrorTypeResponse
	ErrorTypeAPI
	ErrorTypeRateLimit
	ErrorTypeAuthentication
	ErrorTypeInvalidInput
)

// Sentinels for errors.Is. Every provider-side kind (request, response, API,
// authentication) matches ErrProvider; throttling matches only ErrRateLimit.
var (
	ErrProvider  = errors.New("provider error")
	ErrRateLimit = errors.New("rate limit error")

	ErrMissingVariable = errors.New("missing variable")
	ErrInvalidTemplate = errors.New("invalid template")
)

// LLMError represents a failure talking to the completion service.
type LLMError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.TypeString(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.TypeString(), e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// Is classifies the error against the package sentinels.
func (e *LLMError) Is(target error) bool {
	switch target {
	case ErrRateLimit:
		return e.Type == ErrorTypeRateLimit
	case ErrProvider:
		return e.IsProvider()
	}
	return false
}

// IsProvider reports whether the failure came from the provider side rather
// than from throttling or caller input.
func (e *LLMError) IsProvider() bool {
	switch e.Type {
	case ErrorTypeProvider, ErrorTypeRequest, ErrorTypeResponse, ErrorTypeAPI, ErrorTypeAuthentication:
		return true
	default:
		return false
	}
}

func (e *LLMError) TypeString() string {
	switch e.Type {
	case ErrorTypeProvider:
		return "ProviderError"
	case ErrorTypeRequest:
		return "RequestError"
	case ErrorTypeResponse:
		return "ResponseError"
	case ErrorTypeAPI:
		return "APIError"
	case ErrorTypeRateLimit:
		return "RateLimitError"
	case ErrorTypeAuthentication:
		return "AuthenticationError"
	case ErrorTypeInvalidInput:
		return "InvalidInputError"
	default:
		return "UnknownError"
	}
}

// LoggableFields returns the error as alternating keys and values for a Logger.
func (e *LLMError) LoggableFields() []any {
	var cause any
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return []any{
		"error_type", e.TypeString(),
		"status_code", e.StatusCode,
		"cause", cause,
	}
}

// NewLLMError creates a new LLMError
func NewLLMError(errType ErrorType, message string, err error) *LLMError {
	return &LLMError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// MissingVariableError names the declared variables absent from a render or run.
type MissingVariableError struct {
	Template  string
	Variables []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("%s: %s requires %s", ErrMissingVariable, e.Template, strings.Join(e.Variables, ", "))
}

func (e *MissingVariableError) Is(target error) bool {
	return target == ErrMissingVariable
}

// HandleError logs err and panics when fatal is set.
func HandleError(err error, fatal bool, logger utils.Logger) {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		logger.Error(llmErr.Message, llmErr.LoggableFields()...)
	} else {
		logger.Error("An error occurred", "error", err)
	}

	if fatal {
		panic(err)
	}
}
