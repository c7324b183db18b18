package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guiperry/moneymanager/config"
	"github.com/guiperry/moneymanager/utils"
)

// Common parameter keys for Ollama
const (
	ollamaKeyModel   = "model"
	ollamaKeyPrompt  = "prompt"
	ollamaKeyStream  = "stream"
	ollamaKeyOptions = "options"
)

// OllamaProvider implements the Provider interface for a local Ollama server.
// Ollama nests sampling parameters under "options" and calls max_tokens num_predict.
type OllamaProvider struct {
	logger       utils.Logger
	extraHeaders map[string]string
	options      map[string]any
	endpoint     string
	model        string
}

// NewOllamaProvider creates a new Ollama provider instance. Ollama does not
// authenticate, so the API key is ignored.
func NewOllamaProvider(_ string, model string, extraHeaders map[string]string) *OllamaProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &OllamaProvider{
		endpoint:     "http://localhost:11434",
		model:        model,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Endpoint() string {
	return p.endpoint + "/api/generate"
}

func (p *OllamaProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	for key, value := range p.extraHeaders {
		headers[key] = value
	}
	return headers
}

func (p *OllamaProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
}

func (p *OllamaProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("num_predict", cfg.MaxTokens)
	if cfg.Endpoint != "" {
		p.endpoint = strings.TrimRight(cfg.Endpoint, "/")
	}
}

func (p *OllamaProvider) SetOption(key string, value any) {
	p.options[key] = value
	p.logger.Debug("Setting option for Ollama", "key", key, "value", value)
}

func (p *OllamaProvider) SetLogger(logger utils.Logger) {
	p.logger = logger
}

func (p *OllamaProvider) PrepareRequest(prompt string, options map[string]any) ([]byte, error) {
	modelOptions := make(map[string]any, len(p.options)+len(options))
	for k, v := range p.options {
		modelOptions[k] = v
	}
	for k, v := range options {
		if k == "max_tokens" {
			k = "num_predict"
		}
		modelOptions[k] = v
	}

	requestBody := map[string]any{
		ollamaKeyModel:   p.model,
		ollamaKeyPrompt:  prompt,
		ollamaKeyStream:  false,
		ollamaKeyOptions: modelOptions,
	}
	data, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return data, nil
}

func (p *OllamaProvider) ParseResponse(body []byte) (*Response, error) {
	var response struct {
		Response        string `json:"response"`
		Done            bool   `json:"done"`
		PromptEvalCount int64  `json:"prompt_eval_count"`
		EvalCount       int64  `json:"eval_count"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing Ollama response: %w", err)
	}
	if !response.Done && response.Response == "" {
		return nil, fmt.Errorf("incomplete Ollama response")
	}

	resp := &Response{Text: strings.TrimSpace(response.Response)}
	if response.PromptEvalCount > 0 || response.EvalCount > 0 {
		resp.Usage = NewUsage(response.PromptEvalCount, response.EvalCount)
	}
	return resp, nil
}

func (p *OllamaProvider) ErrorMessage(body []byte) string {
	return errorMessage(body)
}
