package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/guiperry/moneymanager/utils"
)

func TestLLMError(t *testing.T) {
	testCases := []struct {
		name          string
		errType       ErrorType
		message       string
		underlyingErr error
		expectedStr   string
	}{
		{
			name:          "Provider error with underlying error",
			errType:       ErrorTypeProvider,
			message:       "Failed to connect",
			underlyingErr: errors.New("connection refused"),
			expectedStr:   "ProviderError (Failed to connect): connection refused",
		},
		{
			name:        "Rate limit error without underlying error",
			errType:     ErrorTypeRateLimit,
			message:     "API error: status code 429",
			expectedStr: "RateLimitError: API error: status code 429",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			llmErr := NewLLMError(tc.errType, tc.message, tc.underlyingErr)

			assert.Equal(t, tc.errType, llmErr.Type)
			assert.Equal(t, tc.message, llmErr.Message)
			assert.Equal(t, tc.underlyingErr, llmErr.Err)
			assert.Equal(t, tc.expectedStr, llmErr.Error())

			if tc.underlyingErr != nil {
				assert.Equal(t, tc.underlyingErr, errors.Unwrap(llmErr))
			}

			fields := llmErr.LoggableFields()
			assert.Len(t, fields, 6)
			assert.Equal(t, "error_type", fields[0])
			assert.Equal(t, llmErr.TypeString(), fields[1])
		})
	}
}

func TestLLMErrorClassification(t *testing.T) {
	testCases := []struct {
		errType     ErrorType
		isProvider  bool
		isRateLimit bool
	}{
		{ErrorTypeProvider, true, false},
		{ErrorTypeRequest, true, false},
		{ErrorTypeResponse, true, false},
		{ErrorTypeAPI, true, false},
		{ErrorTypeAuthentication, true, false},
		{ErrorTypeRateLimit, false, true},
		{ErrorTypeInvalidInput, false, false},
	}

	for _, tc := range testCases {
		llmErr := NewLLMError(tc.errType, "boom", nil)
		t.Run(llmErr.TypeString(), func(t *testing.T) {
			wrapped := fmt.Errorf("chain advice: %w", llmErr)
			assert.Equal(t, tc.isProvider, errors.Is(wrapped, ErrProvider))
			assert.Equal(t, tc.isRateLimit, errors.Is(wrapped, ErrRateLimit))
			assert.False(t, errors.Is(wrapped, ErrMissingVariable))
		})
	}
}

func TestMissingVariableError(t *testing.T) {
	err := error(&MissingVariableError{Template: "advice", Variables: []string{"entity"}})

	assert.True(t, errors.Is(err, ErrMissingVariable))
	assert.EqualError(t, err, "missing variable: advice requires entity")

	var mv *MissingVariableError
	require.True(t, errors.As(fmt.Errorf("run: %w", err), &mv))
	assert.Equal(t, []string{"entity"}, mv.Variables)
}

func TestHandleError(t *testing.T) {
	t.Run("Handle LLMError", func(t *testing.T) {
		mockLogger := &utils.MockLogger{}
		mockLogger.On("Error", "API Error", mock.Anything).Return()

		HandleError(NewLLMError(ErrorTypeAPI, "API Error", nil), false, mockLogger)

		mockLogger.AssertExpectations(t)
		assert.Equal(t, 1, mockLogger.ErrorCallCount)
	})

	t.Run("Handle generic error", func(t *testing.T) {
		mockLogger := &utils.MockLogger{}
		mockLogger.On("Error", "An error occurred", mock.Anything).Return()

		HandleError(errors.New("generic error"), false, mockLogger)

		assert.Equal(t, "An error occurred", mockLogger.LastErrorMessage)
	})

	t.Run("Fatal error", func(t *testing.T) {
		mockLogger := &utils.MockLogger{}
		mockLogger.On("Error", mock.Anything, mock.Anything).Return()
		defer func() {
			r := recover()
			require.NotNil(t, r, "The code did not panic")
			assert.Equal(t, "fatal error", r.(error).Error())
		}()

		HandleError(errors.New("fatal error"), true, mockLogger)
	})
}
