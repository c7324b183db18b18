package moneymanager

import (
	"github.com/guiperry/moneymanager/advisor"
	"github.com/guiperry/moneymanager/chain"
	"github.com/guiperry/moneymanager/llm"
	"github.com/guiperry/moneymanager/providers"
)

type (
	Advisor  = advisor.Advisor
	Response = advisor.Response
	History  = advisor.History
	Prompts  = advisor.Prompts
)

// Errors for errors.Is.
var (
	ErrMissingVariable       = llm.ErrMissingVariable
	ErrInvalidTemplate       = llm.ErrInvalidTemplate
	ErrProvider              = llm.ErrProvider
	ErrRateLimit             = llm.ErrRateLimit
	ErrUnsatisfiedDependency = chain.ErrUnsatisfiedDependency
)

var (
	DefaultPrompts = advisor.DefaultPrompts
	LoadPrompts    = advisor.LoadPrompts
)

// NewAdvisor builds a session from the given options applied over the
// defaults. Nothing is read from the environment; use LoadConfig for that.
//
// Example usage:
//
//	a, err := NewAdvisor(SetAPIKey(key))
//	resp, err := a.Ask(ctx, "index funds")
func NewAdvisor(opts ...ConfigOption) (*Advisor, error) {
	cfg := NewConfig()
	ApplyOptions(cfg, opts...)
	return NewAdvisorFromConfig(cfg)
}

func NewAdvisorFromConfig(cfg *Config) (*Advisor, error) {
	return advisor.NewFromConfig(cfg, providers.NewProviderRegistry())
}
