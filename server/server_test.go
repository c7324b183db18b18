package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiperry/moneymanager/advisor"
	"github.com/guiperry/moneymanager/llm"
)

type fakeAdvisor struct {
	asked   []string
	err     error
	history advisor.History
}

func (f *fakeAdvisor) ID() string { return "session-1" }

func (f *fakeAdvisor) Ask(_ context.Context, topic string) (*advisor.Response, error) {
	f.asked = append(f.asked, topic)
	if f.err != nil {
		return nil, f.err
	}
	f.history.BestInvestments.Turns = append(f.history.BestInvestments.Turns, llm.Turn{Input: topic, Output: "<b>VTSAX</b>"})
	f.history.BestInvestments.Text = "Human: " + topic + "\nAI: <b>VTSAX</b>"
	return &advisor.Response{
		ID:                    "req-1",
		Topic:                 topic,
		BestInvestments:       "<b>VTSAX</b>",
		Advice:                "Buy and hold.",
		FinancialInstitutions: "Vanguard",
	}, nil
}

func (f *fakeAdvisor) History() advisor.History { return f.history }

func newTestServer(t *testing.T, a Advisor) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, err := New(a, nil)
	require.NoError(t, err)
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, &fakeAdvisor{})
	w := serve(s, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestIndex(t *testing.T) {
	a := &fakeAdvisor{}
	s := newTestServer(t, a)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "What financial services are you interested in today?")
	assert.NotContains(t, w.Body.String(), advisor.HeadingAdvice)
	assert.Empty(t, a.asked)
}

func postForm(topic string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"topic": {topic}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestSubmitEmptyTopicIssuesNoRequest(t *testing.T) {
	a := &fakeAdvisor{}
	s := newTestServer(t, a)

	w := serve(s, postForm(""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, a.asked)
	assert.NotContains(t, w.Body.String(), advisor.HeadingAdvice)
}

func TestSubmitRendersSections(t *testing.T) {
	a := &fakeAdvisor{}
	s := newTestServer(t, a)

	w := serve(s, postForm("index funds"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"index funds"}, a.asked)

	body := w.Body.String()
	assert.Contains(t, body, advisor.HeadingBestInvestments)
	assert.Contains(t, body, advisor.HeadingAdvice)
	assert.Contains(t, body, advisor.HeadingFinancialInstitutions)
	assert.Contains(t, body, advisor.HistoryBestInvestments)
	assert.Contains(t, body, "Buy and hold.")
	assert.Contains(t, body, "&lt;b&gt;VTSAX&lt;/b&gt;", "model output is escaped")
	assert.NotContains(t, body, "<b>VTSAX</b>")
}

func TestSubmitProviderError(t *testing.T) {
	a := &fakeAdvisor{err: llm.NewLLMError(llm.ErrorTypeAPI, "API error: status code 500", nil)}
	s := newTestServer(t, a)

	w := serve(s, postForm("bonds"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "status code 500")
	assert.NotContains(t, w.Body.String(), advisor.HeadingAdvice)
}

func TestAdviceAPI(t *testing.T) {
	a := &fakeAdvisor{}
	s := newTestServer(t, a)

	req := httptest.NewRequest(http.MethodPost, "/api/advice", strings.NewReader(`{"topic":"401Ks"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body adviceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "session-1", body.Session)
	assert.Equal(t, "401Ks", body.Response.Topic)
	assert.Equal(t, "Vanguard", body.Response.FinancialInstitutions)
	assert.Len(t, body.History.BestInvestments.Turns, 1)
}

func TestAdviceAPIErrors(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"empty topic", `{"topic":""}`, nil, http.StatusBadRequest, "invalid_request"},
		{"malformed json", `{"topic":`, nil, http.StatusBadRequest, "invalid_request"},
		{"rate limited", `{"topic":"stocks"}`, llm.NewLLMError(llm.ErrorTypeRateLimit, "API error: status code 429", nil), http.StatusTooManyRequests, "rate_limited"},
		{"auth failure", `{"topic":"stocks"}`, llm.NewLLMError(llm.ErrorTypeAuthentication, "API error: status code 401", nil), http.StatusBadGateway, "provider_error"},
		{"missing variable", `{"topic":"stocks"}`, &llm.MissingVariableError{Template: "advice", Variables: []string{"entity"}}, http.StatusBadRequest, "invalid_input"},
		{"deadline", `{"topic":"stocks"}`, context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := &fakeAdvisor{err: tc.err}
			s := newTestServer(t, a)

			req := httptest.NewRequest(http.MethodPost, "/api/advice", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := serve(s, req)

			assert.Equal(t, tc.status, w.Code)
			var envelope ErrorEnvelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			assert.Equal(t, tc.code, envelope.Error.Code)
			assert.NotEmpty(t, envelope.Error.Message)
		})
	}
}

func TestHistoryAPI(t *testing.T) {
	a := &fakeAdvisor{}
	s := newTestServer(t, a)
	serve(s, postForm("gold"))

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "session-1", body.Session)
	require.Len(t, body.History.BestInvestments.Turns, 1)
	assert.Equal(t, "gold", body.History.BestInvestments.Turns[0].Input)
}
