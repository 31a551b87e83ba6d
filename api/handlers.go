package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/seenimoa/fintel/internal/agent"
	"github.com/seenimoa/fintel/internal/config"
	"github.com/seenimoa/fintel/internal/datasource"
	"github.com/seenimoa/fintel/internal/llm"
	"github.com/seenimoa/fintel/internal/presenter"
)

// IntelRequest is the body for POST /api/v1/intel.
type IntelRequest struct {
	Country string `json:"country" validate:"required,max=100"`
}

// IntelResponse is the data of a successful POST /api/v1/intel.
type IntelResponse struct {
	RunID      string            `json:"run_id"`
	Country    string            `json:"country"`
	Runtime    string            `json:"runtime"`
	Answer     string            `json:"answer"`
	ToolCalls  []string          `json:"tool_calls"`
	DurationMS int64             `json:"duration_ms"`
	Report     *presenter.Report `json:"report"`
}

// ToolResponse is the data of GET /api/v1/tools/{tool}.
type ToolResponse struct {
	Tool    string `json:"tool"`
	Country string `json:"country"`
	Output  any    `json:"output"`
}

// toolAliases maps the short names accepted in the URL to tool names.
var toolAliases = map[string]string{
	"currency": agent.ToolCurrency,
	"stock":    agent.ToolStock,
	"stocks":   agent.ToolStock,
	"maps":     agent.ToolMaps,
	"news":     agent.ToolNews,
}

// ResolveToolName accepts a tool name or its short alias.
func ResolveToolName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if full, ok := toolAliases[name]; ok {
		return full
	}
	return name
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":       "ok",
			"version":      s.version,
			"runtime":      s.cfg.LLM.Runtime,
			"model":        s.cfg.LLM.Model,
			"groq_key_set": s.groqKeySet(),
			"news_enabled": s.providers.Headlines != nil,
			"ws_clients":   s.wsHub.ClientCount(),
			"time":         time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleIntel(w http.ResponseWriter, r *http.Request) {
	var req IntelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Country = strings.TrimSpace(req.Country)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	answer, err := s.runner.Run(r.Context(), req.Country)
	if err != nil {
		s.log.Warn("intel request failed", "country", req.Country, "error", err)
		writeError(w, statusForRunError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: IntelResponse{
			RunID:      answer.RunID,
			Country:    answer.Country,
			Runtime:    answer.Runtime,
			Answer:     answer.Text,
			ToolCalls:  answer.ToolCalls,
			DurationMS: answer.Duration.Milliseconds(),
			Report:     presenter.Parse(answer.Text),
		},
	})
}

// handleTool runs one lookup tool directly, the way the model would call it.
func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := ResolveToolName(chi.URLParam(r, "tool"))
	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if country == "" {
		writeError(w, http.StatusBadRequest, "country is required")
		return
	}

	registry := llm.NewToolRegistry(agent.ToolsFor(s.providers)...)
	if _, ok := registry.Get(name); !ok {
		writeError(w, http.StatusNotFound, "unknown tool: "+name)
		return
	}

	args, _ := json.Marshal(map[string]string{"country": country})
	out, err := registry.Execute(r.Context(), llm.ToolCall{Name: name, Arguments: args})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var output any = out
	if json.Valid([]byte(out)) {
		output = json.RawMessage(out)
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ToolResponse{Tool: name, Country: country, Output: output},
	})
}

// handleBrief runs every provider for a country without the LLM.
func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	brief, err := s.providers.Brief(r.Context(), chi.URLParam(r, "country"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, datasource.ErrNoCountry) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    brief,
	})
}

// groqKeySet reports whether a run would find the LLM credential.
func (s *Server) groqKeySet() bool {
	return config.Credential(config.EnvGroqKey, s.cfg.LLM.APIKey)() != ""
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return "country is required"
		case "max":
			return "country must be at most " + fe.Param() + " characters"
		}
	}
	return "invalid request"
}
