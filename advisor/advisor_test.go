package advisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiperry/moneymanager/config"
	"github.com/guiperry/moneymanager/llm"
	"github.com/guiperry/moneymanager/utils"
)

type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (f *fakeClient) Complete(_ context.Context, prompt string, temperature float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.prompts = append(f.prompts, prompt)
	return fmt.Sprintf("T%d", len(f.prompts)), nil
}

func TestAdvisorAskIndexFunds(t *testing.T) {
	client := &fakeClient{}
	a, err := New(client)
	require.NoError(t, err)
	_, err = uuid.Parse(a.ID())
	require.NoError(t, err)

	resp, err := a.Ask(context.Background(), "index funds")
	require.NoError(t, err)

	require.Len(t, client.prompts, 3)
	assert.Equal(t, "Write me advice for the index funds, specifically what are the top 5 best investments in this category", client.prompts[0])
	assert.Equal(t, "Thank you for those suggestions! Really appreciate it. Give me your best advice among the top 5 .", client.prompts[1])
	assert.Equal(t, "Can you list five financial institutions that offer excellent financial services of index funds? Which institution out of the five you listed is the best and why is the best?", client.prompts[2])

	assert.Equal(t, "index funds", resp.Topic)
	assert.Equal(t, "T1", resp.BestInvestments)
	assert.Equal(t, "T2", resp.Advice)
	assert.Equal(t, "T3", resp.FinancialInstitutions)
	assert.NotEmpty(t, resp.ID)

	history := a.History()
	assert.Equal(t, []llm.Turn{{Input: "index funds", Output: "T1"}}, history.BestInvestments.Turns)
	assert.Equal(t, []llm.Turn{{Input: "", Output: "T2"}}, history.Advice.Turns)
	assert.Equal(t, []llm.Turn{{Input: "index funds", Output: "T3"}}, history.FinancialInstitutions.Turns)
	assert.Equal(t, "Human: index funds\nAI: T1", history.BestInvestments.Text)
}

func TestAdvisorThreadEntity(t *testing.T) {
	client := &fakeClient{}
	a, err := New(client, WithThreadEntity(true))
	require.NoError(t, err)

	_, err = a.Ask(context.Background(), "401Ks")
	require.NoError(t, err)

	assert.Equal(t, "Thank you for those suggestions! Really appreciate it. Give me your best advice among the top 5 T1.", client.prompts[1])
	assert.Equal(t, "T1", a.History().Advice.Turns[0].Input)
}

func TestAdvisorHistoryAccumulates(t *testing.T) {
	a, err := New(&fakeClient{})
	require.NoError(t, err)

	for _, topic := range []string{"Stocks", "ROTH IRAs"} {
		_, err := a.Ask(context.Background(), topic)
		require.NoError(t, err)
	}

	history := a.History()
	assert.Len(t, history.BestInvestments.Turns, 2)
	assert.Len(t, history.Advice.Turns, 2)
	assert.Equal(t, "Human: Stocks\nAI: T3\nHuman: ROTH IRAs\nAI: T6", history.FinancialInstitutions.Text)
}

func TestAdvisorProviderFailure(t *testing.T) {
	client := &fakeClient{err: llm.NewLLMError(llm.ErrorTypeAuthentication, "API error: status code 401", nil)}
	a, err := New(client)
	require.NoError(t, err)

	resp, err := a.Ask(context.Background(), "bonds")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, llm.ErrProvider))
	assert.Empty(t, a.History().BestInvestments.Turns)
}

func TestAdvisorRejectsBrokenPrompts(t *testing.T) {
	prompts := DefaultPrompts()
	prompts.Advice = PromptSpec{Template: "Advice on {{.topic}}", InputVariables: []string{"topic"}}

	_, err := New(&fakeClient{}, WithPrompts(prompts))
	assert.Error(t, err, "advice memory is keyed by entity")

	prompts = DefaultPrompts()
	prompts.BestInvestments = PromptSpec{Template: "{{.topic}} {{.budget}}", InputVariables: []string{"topic", "budget"}}
	_, err = New(&fakeClient{}, WithPrompts(prompts))
	assert.Error(t, err, "budget is not a pipeline input")

	prompts = DefaultPrompts()
	prompts.Advice = PromptSpec{Template: "{{with .chat_history}}{{.entity}}{{end}}", InputVariables: []string{"entity"}}
	_, err = New(&fakeClient{}, WithPrompts(prompts))
	assert.True(t, errors.Is(err, llm.ErrInvalidTemplate), "entity is read where dot is the history")
}

func TestAdvisorRootReferencePrompts(t *testing.T) {
	prompts := DefaultPrompts()
	prompts.Advice = PromptSpec{
		Template:       "{{with .chat_history}}Earlier:\n{{.}}\n{{end}}Best of {{$.entity}}?",
		InputVariables: []string{"entity"},
	}
	client := &fakeClient{}
	a, err := New(client, WithPrompts(prompts), WithThreadEntity(true))
	require.NoError(t, err)

	_, err = a.Ask(context.Background(), "bonds")
	require.NoError(t, err)
	_, err = a.Ask(context.Background(), "gold")
	require.NoError(t, err)

	require.Len(t, client.prompts, 6)
	assert.Equal(t, "Best of T1?", client.prompts[1])
	assert.Equal(t, "Earlier:\nHuman: T1\nAI: T2\nBest of T4?", client.prompts[4])
}

func TestNewFromConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		_, _ = w.Write([]byte(`{"choices":[{"text":"generated"}]}`))
	}))
	defer srv.Close()

	promptsFile := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(promptsFile, []byte(`
best_investments:
  template: "Top picks for {{.topic}}"
  input_variables: [topic]
`), 0o600))

	cfg := config.NewConfig()
	config.ApplyOptions(cfg,
		config.SetEndpoint(srv.URL+"/v1"),
		config.SetAPIKey("sk-test"),
		config.SetPromptsFile(promptsFile),
		config.SetLogger(utils.NewNopLogger()),
	)

	a, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)

	resp, err := a.Ask(context.Background(), "gold")
	require.NoError(t, err)
	assert.Equal(t, "generated", resp.BestInvestments)
	assert.Equal(t, "generated", resp.FinancialInstitutions)
}

func TestNewFromConfigInvalid(t *testing.T) {
	cfg := config.NewConfig()

	_, err := NewFromConfig(cfg, nil)
	assert.Error(t, err, "no API key for openai")
}
