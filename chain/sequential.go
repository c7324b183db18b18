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

var ErrUnsatisfiedDependency = errors.New("unsatisfied dependency")

// UnsatisfiedDependencyError reports a variable that nothing upstream provides.
// Chain is empty when the variable is an overall output.
type UnsatisfiedDependencyError struct {
	Chain    string
	Variable string
}

func (e *UnsatisfiedDependencyError) Error() string {
	if e.Chain == "" {
		return fmt.Sprintf("%s: output variable %q is neither a declared input nor a chain output", ErrUnsatisfiedDependency, e.Variable)
	}
	return fmt.Sprintf("%s: chain %s needs %q, which is neither a declared input nor an earlier chain output", ErrUnsatisfiedDependency, e.Chain, e.Variable)
}

func (e *UnsatisfiedDependencyError) Is(target error) bool {
	return target == ErrUnsatisfiedDependency
}

// Result is the outcome of one Run. Outputs holds the declared output
// variables; Pool holds every variable seen during the run.
type Result struct {
	Outputs map[string]string
	Pool    map[string]string
}

// Sequential runs its chains strictly in order. It keeps no state between
// runs; history lives in each chain's memory.
type Sequential struct {
	chains          []*Chain
	inputVariables  []string
	outputVariables []string
	logger          utils.Logger
}

type SequentialOption func(*Sequential)

func WithSequentialLogger(logger utils.Logger) SequentialOption {
	return func(s *Sequential) {
		s.logger = logger
	}
}

// NewSequential checks the wiring once: every chain input must be a declared
// input or an earlier chain's output, every output variable must be
// producible, and no two chains may publish the same key.
func NewSequential(chains []*Chain, inputVariables, outputVariables []string, opts ...SequentialOption) (*Sequential, error) {
	if len(chains) == 0 {
		return nil, errors.New("sequential requires at least one chain")
	}

	s := &Sequential{
		chains:          slices.Clone(chains),
		inputVariables:  slices.Clone(inputVariables),
		outputVariables: slices.Clone(outputVariables),
		logger:          utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	available := make(map[string]bool)
	for _, v := range inputVariables {
		available[v] = true
	}
	for _, c := range chains {
		for _, key := range c.InputKeys() {
			if !available[key] {
				return nil, &UnsatisfiedDependencyError{Chain: c.Name(), Variable: key}
			}
		}
		if available[c.OutputKey()] {
			return nil, fmt.Errorf("chain %s: output key %q is already provided upstream", c.Name(), c.OutputKey())
		}
		available[c.OutputKey()] = true
	}
	for _, v := range outputVariables {
		if !available[v] {
			return nil, &UnsatisfiedDependencyError{Variable: v}
		}
	}
	return s, nil
}

func (s *Sequential) Chains() []*Chain {
	return slices.Clone(s.chains)
}

func (s *Sequential) InputVariables() []string {
	return slices.Clone(s.inputVariables)
}

func (s *Sequential) OutputVariables() []string {
	return slices.Clone(s.outputVariables)
}

// Run invokes each chain with the pool built so far. A chain's output key is
// always added; its other returned keys never overwrite pool entries. The
// first error aborts the run and no partial result is returned.
func (s *Sequential) Run(ctx context.Context, initial map[string]string) (*Result, error) {
	var missing []string
	for _, v := range s.inputVariables {
		if _, ok := initial[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return nil, &llm.MissingVariableError{Template: "sequential", Variables: missing}
	}

	pool := make(map[string]string, len(initial)+len(s.chains))
	maps.Copy(pool, initial)

	for i, c := range s.chains {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.logger.Debug("Running chain", "chain", c.Name(), "step", i+1, "of", len(s.chains))

		out, err := c.Invoke(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", c.Name(), err)
		}
		pool[c.OutputKey()] = out[c.OutputKey()]
		for k, v := range out {
			if _, exists := pool[k]; !exists {
				pool[k] = v
			}
		}
	}

	outputs := make(map[string]string, len(s.outputVariables))
	for _, v := range s.outputVariables {
		outputs[v] = pool[v]
	}
	return &Result{Outputs: outputs, Pool: pool}, nil
}
