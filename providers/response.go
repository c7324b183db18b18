package providers

import (
	"encoding/json"
	"strings"
)

// Response is the parsed result of one completion request.
type Response struct {
	Text  string
	Usage *Usage
}

func (r Response) String() string {
	return r.Text
}

// Usage holds the token accounting reported by the provider, when it reports any.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func NewUsage(inputTokens, outputTokens int64) *Usage {
	return &Usage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
	}
}

// errorMessage understands both {"error": {"message": ...}} and {"error": "..."}.
func errorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	return strings.TrimSpace(string(body))
}
