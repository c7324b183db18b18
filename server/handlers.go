package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guiperry/moneymanager/advisor"
)

type headings struct {
	BestInvestments              string
	Advice                       string
	FinancialInstitutions        string
	History                      string
	HistoryBestInvestments       string
	HistoryAdvice                string
	HistoryFinancialInstitutions string
}

var pageHeadings = headings{
	BestInvestments:              advisor.HeadingBestInvestments,
	Advice:                       advisor.HeadingAdvice,
	FinancialInstitutions:        advisor.HeadingFinancialInstitutions,
	History:                      advisor.HeadingHistory,
	HistoryBestInvestments:       advisor.HistoryBestInvestments,
	HistoryAdvice:                advisor.HistoryAdvice,
	HistoryFinancialInstitutions: advisor.HistoryFinancialInstitutions,
}

type page struct {
	Prompt   string
	Topic    string
	Response *advisor.Response
	History  advisor.History
	Headings headings
	Error    string
}

type adviceRequest struct {
	Topic string `json:"topic" binding:"required"`
}

type adviceResponse struct {
	Session  string            `json:"session"`
	Response *advisor.Response `json:"response"`
	History  advisor.History   `json:"history"`
}

type historyResponse struct {
	Session string          `json:"session"`
	History advisor.History `json:"history"`
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", page{Prompt: advisor.Prompt, Headings: pageHeadings})
}

// Submit handles the form. An empty topic renders the page without asking.
func (s *Server) Submit(c *gin.Context) {
	topic := c.PostForm("topic")
	data := page{Prompt: advisor.Prompt, Topic: topic, Headings: pageHeadings}
	if topic == "" {
		c.HTML(http.StatusOK, "index.html", data)
		return
	}

	resp, history, err := s.ask(c.Request.Context(), topic)
	if err != nil {
		status, _ := classify(err)
		s.logger.Error("Advisor failed", "error", err, "status", status)
		data.Error = err.Error()
		c.HTML(status, "index.html", data)
		return
	}
	data.Response = resp
	data.History = history
	c.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) Advice(c *gin.Context) {
	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	resp, history, err := s.ask(c.Request.Context(), req.Topic)
	if err != nil {
		status, code := classify(err)
		s.logger.Error("Advisor failed", "error", err, "status", status)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, adviceResponse{Session: s.advisor.ID(), Response: resp, History: history})
}

func (s *Server) History(c *gin.Context) {
	s.mu.Lock()
	history := s.advisor.History()
	s.mu.Unlock()

	RespondOK(c, historyResponse{Session: s.advisor.ID(), History: history})
}
