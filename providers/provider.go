// Package providers implements the wire formats of the hosted completion
// services MoneyManager can talk to. A provider only builds request bodies
// and parses response bodies; the HTTP round trip lives in the llm package.
package providers

import (
	"github.com/guiperry/moneymanager/config"
	"github.com/guiperry/moneymanager/utils"
)

// Provider defines the interface every completion backend implements.
type Provider interface {
	// Core identification and configuration
	Name() string
	Endpoint() string
	Headers() map[string]string
	SetExtraHeaders(extraHeaders map[string]string)
	SetDefaultOptions(cfg *config.Config)
	SetOption(key string, value any)
	SetLogger(logger utils.Logger)

	// PrepareRequest builds the body for a single completion of prompt.
	// Per-call options (temperature) override the defaults.
	PrepareRequest(prompt string, options map[string]any) ([]byte, error)

	// ParseResponse extracts the generated text from a 200 response body.
	ParseResponse(body []byte) (*Response, error)

	// ErrorMessage extracts a human readable message from an error body.
	ErrorMessage(body []byte) string
}

// ProviderConstructor defines a function type for creating new provider instances.
type ProviderConstructor func(apiKey, model string, extraHeaders map[string]string) Provider
