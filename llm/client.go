// Package llm holds the building blocks of a prompt chain: templates, the
// per-chain memory log, and the client that sends a rendered prompt to the
// configured completion provider.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/guiperry/moneymanager/config"
	"github.com/guiperry/moneymanager/providers"
	"github.com/guiperry/moneymanager/utils"
)

// CompletionClient sends one fully rendered prompt and returns the generated text.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Client issues exactly one HTTP request per Complete call. It never retries.
type Client struct {
	Provider providers.Provider
	client   *http.Client
	limiter  *rate.Limiter
	logger   utils.Logger
}

// NewClient builds a client for cfg.Provider. The credential comes from cfg,
// never from the process environment.
func NewClient(cfg *config.Config, logger utils.Logger, registry *providers.ProviderRegistry) (*Client, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if registry == nil {
		registry = providers.NewProviderRegistry()
	}

	provider, err := registry.Get(cfg.Provider, cfg.APIKey(), cfg.Model, cfg.ExtraHeaders)
	if err != nil {
		return nil, NewLLMError(ErrorTypeInvalidInput, "unsupported provider", err)
	}
	provider.SetLogger(logger)
	provider.SetDefaultOptions(cfg)

	c := &Client{
		Provider: provider,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c, nil
}

// Complete sends prompt as is with the given sampling temperature.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if temperature < 0 || temperature > 1 {
		return "", NewLLMError(ErrorTypeInvalidInput, fmt.Sprintf("temperature %v outside [0, 1]", temperature), nil)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", NewLLMError(ErrorTypeRequest, "request pacing interrupted", err)
		}
	}

	reqBody, err := c.Provider.PrepareRequest(prompt, map[string]any{"temperature": temperature})
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to prepare request", err)
	}
	c.logger.Debug("Sending completion request", "provider", c.Provider.Name(), "prompt_chars", len(prompt), "temperature", temperature)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Provider.Endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to create request", err)
	}
	for k, v := range c.Provider.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", NewLLMError(ErrorTypeProvider, "failed to send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewLLMError(ErrorTypeResponse, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		llmErr := statusError(resp.StatusCode, c.Provider.ErrorMessage(body))
		c.logger.Error("API error", append([]any{"provider", c.Provider.Name()}, llmErr.LoggableFields()...)...)
		return "", llmErr
	}

	result, err := c.Provider.ParseResponse(body)
	if err != nil {
		return "", NewLLMError(ErrorTypeResponse, "failed to parse response", err)
	}
	if result.Usage != nil {
		c.logger.Debug("Completion received", "provider", c.Provider.Name(), "input_tokens", result.Usage.InputTokens, "output_tokens", result.Usage.OutputTokens)
	} else {
		c.logger.Debug("Completion received", "provider", c.Provider.Name(), "chars", len(result.Text))
	}
	return result.Text, nil
}

func statusError(status int, message string) *LLMError {
	var errType ErrorType
	switch {
	case status == http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = ErrorTypeAuthentication
	default:
		errType = ErrorTypeAPI
	}
	err := NewLLMError(errType, fmt.Sprintf("API error: status code %d: %s", status, message), nil)
	err.StatusCode = status
	return err
}
