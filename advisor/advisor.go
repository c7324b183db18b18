// Package advisor wires the MoneyManager pipeline: best investments for a
// topic, advice among them, and the institutions that offer them.
package advisor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/guiperry/moneymanager/chain"
	"github.com/guiperry/moneymanager/config"
	"github.com/guiperry/moneymanager/llm"
	"github.com/guiperry/moneymanager/providers"
	"github.com/guiperry/moneymanager/utils"
)

// Pool variables of the pipeline.
const (
	VarTopic                 = "topic"
	VarEntity                = "entity"
	VarTitle                 = "title"
	VarAdvice                = "advice"
	VarFinancialInstitutions = "financial_institutions"
)

// Section headings shared by every presentation.
const (
	HeadingBestInvestments       = "MoneyManager generated the top-5 best investment vehicles for your topic:"
	HeadingAdvice                = "MoneyManager advises you on what to invest in:"
	HeadingFinancialInstitutions = "MoneyManager gives you a list of financial institutions that have the investment vehicle you are looking for:"
	HeadingHistory               = "History of responses generated by MoneyManager:"

	HistoryBestInvestments       = "Best Investments History"
	HistoryAdvice                = "Advice History"
	HistoryFinancialInstitutions = "Financial Institutions History"
)

// Prompt is the question shown to the user.
const Prompt = "What financial services are you interested in today? For example, how about Traditional/ROTH IRAs, 401Ks, or Stocks?"

// Response holds the three generated texts of one run.
type Response struct {
	ID                    string `json:"id"`
	Topic                 string `json:"topic"`
	BestInvestments       string `json:"best_investments"`
	Advice                string `json:"advice"`
	FinancialInstitutions string `json:"financial_institutions"`
}

// Lane is the accumulated memory of one chain.
type Lane struct {
	Turns []llm.Turn `json:"turns"`
	Text  string     `json:"text"`
}

type History struct {
	BestInvestments       Lane `json:"best_investments"`
	Advice                Lane `json:"advice"`
	FinancialInstitutions Lane `json:"financial_institutions"`
}

type options struct {
	prompts      Prompts
	threadEntity bool
	temperature  float64
	tokenizer    string
	logger       utils.Logger
}

type Option func(*options)

func WithPrompts(prompts Prompts) Option {
	return func(o *options) {
		o.prompts = prompts
	}
}

// WithThreadEntity feeds the generated best-investments list into the advice
// prompt. Without it the advice prompt sees the blank entity input.
func WithThreadEntity(thread bool) Option {
	return func(o *options) {
		o.threadEntity = thread
	}
}

func WithTemperature(temperature float64) Option {
	return func(o *options) {
		o.temperature = temperature
	}
}

// WithTokenizer counts tokens in every lane with the encoding of model.
func WithTokenizer(model string) Option {
	return func(o *options) {
		o.tokenizer = model
	}
}

func WithLogger(logger utils.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Advisor owns one session: three chains with their memories and the
// sequence that runs them. It is not safe for concurrent Ask calls.
type Advisor struct {
	id              string
	sequence        *chain.Sequential
	bestInvestments *chain.Chain
	advice          *chain.Chain
	institutions    *chain.Chain
	logger          utils.Logger
}

func New(client llm.CompletionClient, opts ...Option) (*Advisor, error) {
	o := options{
		prompts:     DefaultPrompts(),
		temperature: chain.DefaultTemperature,
		logger:      utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Advisor{
		id:     uuid.NewString(),
		logger: o.logger,
	}

	var err error
	a.bestInvestments, err = newLane(client, o, KeyBestInvestments, o.prompts.BestInvestments, VarTopic, VarTitle)
	if err != nil {
		return nil, err
	}
	var adviceOpts []chain.Option
	if o.threadEntity {
		adviceOpts = append(adviceOpts, chain.WithInputBinding(VarEntity, VarTitle))
	}
	a.advice, err = newLane(client, o, KeyAdvice, o.prompts.Advice, VarEntity, VarAdvice, adviceOpts...)
	if err != nil {
		return nil, err
	}
	a.institutions, err = newLane(client, o, KeyFinancialInstitutions, o.prompts.FinancialInstitutions, VarTopic, VarFinancialInstitutions)
	if err != nil {
		return nil, err
	}

	a.sequence, err = chain.NewSequential(
		[]*chain.Chain{a.bestInvestments, a.advice, a.institutions},
		[]string{VarTopic, VarEntity},
		[]string{VarTopic, VarAdvice, VarFinancialInstitutions},
		chain.WithSequentialLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Advisor ready", "session", a.id, "thread_entity", o.threadEntity)
	return a, nil
}

func newLane(client llm.CompletionClient, o options, name string, spec PromptSpec, inputKey, outputKey string, opts ...chain.Option) (*chain.Chain, error) {
	template, err := llm.NewPromptTemplate(name, spec.Template, spec.InputVariables)
	if err != nil {
		return nil, err
	}

	memoryOpts := []llm.MemoryOption{llm.WithMemoryLogger(o.logger)}
	if o.tokenizer != "" {
		memoryOpts = append(memoryOpts, llm.WithTokenizer(o.tokenizer))
	}
	memory, err := llm.NewMemory(inputKey, memoryOpts...)
	if err != nil {
		return nil, err
	}

	opts = append(opts, chain.WithName(name), chain.WithTemperature(o.temperature), chain.WithLogger(o.logger))
	return chain.NewChain(template, memory, client, outputKey, opts...)
}

// NewFromConfig builds the completion client and the advisor from cfg,
// loading the prompt catalogue when one is configured.
func NewFromConfig(cfg *config.Config, registry *providers.ProviderRegistry) (*Advisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.GetLogger()

	prompts := DefaultPrompts()
	if cfg.App.PromptsFile != "" {
		var err error
		prompts, err = LoadPrompts(cfg.App.PromptsFile)
		if err != nil {
			return nil, err
		}
	}

	client, err := llm.NewClient(cfg, logger, registry)
	if err != nil {
		return nil, err
	}

	return New(client,
		WithPrompts(prompts),
		WithThreadEntity(cfg.App.ThreadEntity),
		WithTemperature(cfg.Temperature),
		WithTokenizer(cfg.Model),
		WithLogger(logger),
	)
}

// ID identifies the session.
func (a *Advisor) ID() string {
	return a.id
}

// Ask runs the three lanes for topic. An empty topic is sent as is; deciding
// not to ask is up to the caller.
func (a *Advisor) Ask(ctx context.Context, topic string) (*Response, error) {
	requestID := uuid.NewString()
	a.logger.Info("Running advisor", "session", a.id, "request", requestID)

	result, err := a.sequence.Run(ctx, map[string]string{VarTopic: topic, VarEntity: ""})
	if err != nil {
		return nil, fmt.Errorf("advisor: %w", err)
	}

	return &Response{
		ID:                    requestID,
		Topic:                 result.Outputs[VarTopic],
		BestInvestments:       result.Pool[VarTitle],
		Advice:                result.Outputs[VarAdvice],
		FinancialInstitutions: result.Outputs[VarFinancialInstitutions],
	}, nil
}

// History returns every lane's memory as recorded so far.
func (a *Advisor) History() History {
	return History{
		BestInvestments:       lane(a.bestInvestments),
		Advice:                lane(a.advice),
		FinancialInstitutions: lane(a.institutions),
	}
}

func lane(c *chain.Chain) Lane {
	memory := c.Memory()
	return Lane{Turns: memory.Snapshot(), Text: memory.Render()}
}
