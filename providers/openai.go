package providers

import (
	"encoding/json"
	"errors"
	"maps"
	"strings"

	"github.com/guiperry/moneymanager/config"
	"github.com/guiperry/moneymanager/utils"
)

const openAIBaseURL = "https://api.openai.com/v1"

// openAIBase carries what the completions and chat flavours share.
type openAIBase struct {
	apiKey       string
	model        string
	baseURL      string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

func newOpenAIBase(apiKey, model string, extraHeaders map[string]string) openAIBase {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return openAIBase{
		apiKey:       apiKey,
		model:        model,
		baseURL:      openAIBaseURL,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
	}
}

func (p *openAIBase) SetOption(key string, value any) {
	p.options[key] = value
	p.logger.Debug("Option set", "key", key, "value", value)
}

// SetDefaultOptions sets default options based on the provided configuration
func (p *openAIBase) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("max_tokens", cfg.MaxTokens)
	if cfg.Endpoint != "" {
		p.baseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	p.logger.Debug("Default options set", "temperature", cfg.Temperature, "max_tokens", cfg.MaxTokens, "base_url", p.baseURL)
}

func (p *openAIBase) SetLogger(logger utils.Logger) {
	p.logger = logger
}

func (p *openAIBase) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
	p.logger.Debug("Extra headers set", "count", len(extraHeaders))
}

// Headers returns the necessary headers for API requests. The key itself is never logged.
func (p *openAIBase) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
	}
	for key, value := range p.extraHeaders {
		headers[key] = value
	}
	return headers
}

func (p *openAIBase) ErrorMessage(body []byte) string {
	return errorMessage(body)
}

func (p *openAIBase) marshal(request map[string]any, options map[string]any) ([]byte, error) {
	maps.Copy(request, p.options)
	maps.Copy(request, options)
	reqJSON, err := json.Marshal(request)
	if err != nil {
		p.logger.Error("Failed to marshal request", "error", err)
		return nil, err
	}
	p.logger.Debug("Request prepared", "bytes", len(reqJSON))
	return reqJSON, nil
}

type openAIUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

func (u *openAIUsage) toUsage() *Usage {
	if u == nil {
		return nil
	}
	return NewUsage(u.PromptTokens, u.CompletionTokens)
}

// OpenAIProvider talks to the legacy text-completion endpoint, which takes a
// bare prompt string. This is the default provider.
type OpenAIProvider struct {
	openAIBase
}

// NewOpenAIProvider creates a new OpenAI text-completion provider.
func NewOpenAIProvider(apiKey, model string, extraHeaders map[string]string) *OpenAIProvider {
	return &OpenAIProvider{openAIBase: newOpenAIBase(apiKey, model, extraHeaders)}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Endpoint() string {
	return p.baseURL + "/completions"
}

func (p *OpenAIProvider) PrepareRequest(prompt string, options map[string]any) ([]byte, error) {
	return p.marshal(map[string]any{
		"model":  p.model,
		"prompt": prompt,
	}, options)
}

func (p *OpenAIProvider) ParseResponse(body []byte) (*Response, error) {
	var response struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
		Usage *openAIUsage `json:"usage"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("empty response from API")
	}
	return &Response{
		Text:  strings.TrimSpace(response.Choices[0].Text),
		Usage: response.Usage.toUsage(),
	}, nil
}

// OpenAIChatProvider sends the prompt as a single user message to the chat
// completions endpoint, for models that are no longer served as plain completions.
type OpenAIChatProvider struct {
	openAIBase
}

func NewOpenAIChatProvider(apiKey, model string, extraHeaders map[string]string) *OpenAIChatProvider {
	return &OpenAIChatProvider{openAIBase: newOpenAIBase(apiKey, model, extraHeaders)}
}

func (p *OpenAIChatProvider) Name() string {
	return "openai-chat"
}

func (p *OpenAIChatProvider) Endpoint() string {
	return p.baseURL + "/chat/completions"
}

func (p *OpenAIChatProvider) PrepareRequest(prompt string, options map[string]any) ([]byte, error) {
	return p.marshal(map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}, options)
}

func (p *OpenAIChatProvider) ParseResponse(body []byte) (*Response, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage *openAIUsage `json:"usage"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("empty response from API")
	}
	return &Response{
		Text:  strings.TrimSpace(response.Choices[0].Message.Content),
		Usage: response.Usage.toUsage(),
	}, nil
}
