package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/seenimoa/fintel/internal/agent"
	"github.com/seenimoa/fintel/internal/presenter"
)

// Dashboard messages.
const (
	msgEnterCountry  = "Please enter a country name."
	msgConfigureKey  = "Please configure your Groq API Key first."
	defaultCountry   = "India"
	flashWarning     = "warning"
	flashError       = "error"
	agentFailurePref = "Agent execution failed: "
)

type flash struct {
	Level string
	Text  string
}

// dashboardPage is the data of the dashboard templates.
type dashboardPage struct {
	Country     string
	GroqKeySet  bool
	NewsEnabled bool
	Runtime     string
	Flash       *flash
	Report      *presenter.Report
	Answer      *agent.Answer
}

func (s *Server) newPage(country string) *dashboardPage {
	return &dashboardPage{
		Country:     country,
		GroqKeySet:  s.groqKeySet(),
		NewsEnabled: s.providers.Headlines != nil,
		Runtime:     s.cfg.LLM.Runtime,
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.newPage(defaultCountry))
}

// handleDashboardIntel runs the orchestrator for the submitted country and
// renders the result. Run failures stop rendering; only the message is shown.
func (s *Server) handleDashboardIntel(w http.ResponseWriter, r *http.Request) {
	country := strings.TrimSpace(r.FormValue("country"))
	page := s.newPage(country)

	if country == "" {
		page.Flash = &flash{Level: flashWarning, Text: msgEnterCountry}
		s.renderPage(w, http.StatusBadRequest, page)
		return
	}

	answer, err := s.runner.Run(r.Context(), country)
	if err != nil {
		s.log.Warn("dashboard run failed", "country", country, "error", err)
		page.Flash = &flash{Level: flashError, Text: dashboardError(err)}
		s.renderPage(w, statusForRunError(err), page)
		return
	}

	page.Answer = answer
	page.Report = presenter.Parse(answer.Text)
	s.renderPage(w, http.StatusOK, page)
}

func dashboardError(err error) string {
	var runErr *agent.RunError
	switch {
	case errors.Is(err, agent.ErrEmptyCountry):
		return msgEnterCountry
	case errors.Is(err, agent.ErrMissingAPIKey):
		return msgConfigureKey
	case errors.As(err, &runErr):
		return agentFailurePref + runErr.Err.Error()
	default:
		return agentFailurePref + err.Error()
	}
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page *dashboardPage) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "layout", page); err != nil {
		s.log.Error("render dashboard failed", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	w.Write(buf.Bytes()) //nolint:errcheck
}
