// Package chain runs prompt templates against a completion client, one
// memory log per chain, in a fixed sequential order.
package chain

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/guiperry/moneymanager/llm"
	"github.com/guiperry/moneymanager/utils"
)

// DefaultTemperature is the sampling temperature a chain uses unless told otherwise.
const DefaultTemperature = 0.9

// Chain binds one template, one memory log and a completion client, and
// publishes the completion under its output key.
type Chain struct {
	name        string
	template    *llm.PromptTemplate
	memory      *llm.Memory
	client      llm.CompletionClient
	outputKey   string
	temperature float64
	bindings    map[string]string
	logger      utils.Logger
}

type Option func(*Chain)

func WithTemperature(temperature float64) Option {
	return func(c *Chain) {
		c.temperature = temperature
	}
}

// WithInputBinding fills the template variable from poolKey instead of the
// pool entry of the same name.
func WithInputBinding(variable, poolKey string) Option {
	return func(c *Chain) {
		c.bindings[variable] = poolKey
	}
}

func WithLogger(logger utils.Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// WithName sets the name used in logs and errors. It defaults to the output key.
func WithName(name string) Option {
	return func(c *Chain) {
		c.name = name
	}
}

func NewChain(template *llm.PromptTemplate, memory *llm.Memory, client llm.CompletionClient, outputKey string, opts ...Option) (*Chain, error) {
	if template == nil || memory == nil || client == nil {
		return nil, errors.New("chain requires a template, a memory and a client")
	}
	if outputKey == "" || outputKey == llm.ChatHistoryKey {
		return nil, fmt.Errorf("invalid output key %q", outputKey)
	}

	c := &Chain{
		name:        outputKey,
		template:    template,
		memory:      memory,
		client:      client,
		outputKey:   outputKey,
		temperature: DefaultTemperature,
		bindings:    make(map[string]string),
		logger:      utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	vars := template.Variables()
	if !slices.Contains(vars, memory.InputKey()) {
		return nil, fmt.Errorf("chain %s: memory input key %q is not a template variable", c.name, memory.InputKey())
	}
	for variable, poolKey := range c.bindings {
		if !slices.Contains(vars, variable) {
			return nil, fmt.Errorf("chain %s: binding for unknown template variable %q", c.name, variable)
		}
		if poolKey == "" {
			return nil, fmt.Errorf("chain %s: empty pool key bound to %q", c.name, variable)
		}
	}
	if c.temperature < 0 || c.temperature > 1 {
		return nil, fmt.Errorf("chain %s: temperature %v outside [0, 1]", c.name, c.temperature)
	}
	return c, nil
}

func (c *Chain) Name() string {
	return c.name
}

func (c *Chain) OutputKey() string {
	return c.outputKey
}

func (c *Chain) Memory() *llm.Memory {
	return c.memory
}

func (c *Chain) Template() *llm.PromptTemplate {
	return c.template
}

// InputKeys lists the pool keys the chain reads, after bindings, sorted.
// The reserved chat history is not included: the chain supplies it.
func (c *Chain) InputKeys() []string {
	var keys []string
	for _, variable := range c.template.Variables() {
		if variable == llm.ChatHistoryKey {
			continue
		}
		if poolKey, ok := c.bindings[variable]; ok {
			variable = poolKey
		}
		keys = append(keys, variable)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// Invoke renders the template against values plus the chat history, requests
// one completion and records the exchange in memory. It returns a copy of
// values with the output key added. Memory is only appended on success.
func (c *Chain) Invoke(ctx context.Context, values map[string]string) (map[string]string, error) {
	merged := make(map[string]string, len(values)+1)
	maps.Copy(merged, values)
	for variable, poolKey := range c.bindings {
		value, ok := values[poolKey]
		if !ok {
			return nil, &llm.MissingVariableError{Template: c.name, Variables: []string{poolKey}}
		}
		merged[variable] = value
	}
	merged[llm.ChatHistoryKey] = c.memory.Render()

	prompt, err := c.template.Render(merged)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Invoking chain", "chain", c.name, "output_key", c.outputKey, "prompt", prompt)

	output, err := c.client.Complete(ctx, prompt, c.temperature)
	if err != nil {
		c.logger.Warn("Chain completion failed", "chain", c.name, "error", err)
		return nil, err
	}

	c.memory.Append(merged[c.memory.InputKey()], output)
	c.logger.Info("Chain completed", "chain", c.name, "output_key", c.outputKey, "turns", c.memory.Len())

	result := make(map[string]string, len(values)+1)
	maps.Copy(result, values)
	result[c.outputKey] = output
	return result, nil
}
