// Package agent runs fintel's financial query orchestrator: it hands the
// country lookups to a tool-calling language model and returns the model's
// final answer text. Two runtimes are available, the Eino ReAct agent and the
// in-repo llm tool loop; both talk to Groq's OpenAI-compatible API.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/fintel/internal/config"
	"github.com/seenimoa/fintel/internal/datasource"
	"github.com/seenimoa/fintel/internal/llm"
	"github.com/seenimoa/fintel/internal/logging"
)

// Runtime names accepted by Config.Runtime.
const (
	RuntimeEino   = "eino"
	RuntimeNative = "native"
)

var (
	// ErrEmptyCountry is returned when the request has no country.
	ErrEmptyCountry = errors.New("agent: country is required")
	// ErrMissingAPIKey is returned before any tool runs when no LLM key is configured.
	ErrMissingAPIKey = errors.New("agent: GROQ_API_KEY not configured")
	// ErrUnknownRuntime is returned by New for an unsupported runtime name.
	ErrUnknownRuntime = errors.New("agent: unknown runtime")
)

// RunError reports a failure inside the model runtime. The run produced no answer.
type RunError struct {
	RunID   string
	Runtime string
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("agent execution failed: %v", e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Answer is the final text of one orchestrator run.
type Answer struct {
	RunID     string        `json:"run_id"`
	Country   string        `json:"country"`
	Text      string        `json:"text"`
	Runtime   string        `json:"runtime"`
	ToolCalls []string      `json:"tool_calls"`
	Duration  time.Duration `json:"duration"`
}

// Runner answers a financial intelligence request for one country.
// *Orchestrator implements it.
//
//go:generate mockgen -package=api -destination=../../api/mock_runner_test.go -source=agent.go -exclude_interfaces=Engine
type Runner interface {
	Run(ctx context.Context, country string) (*Answer, error)
}

// Request is what an Engine receives for one run.
type Request struct {
	APIKey string
	System string
	User   string
	Tools  []llm.Tool
}

// Engine drives a tool-calling model until it produces a final answer.
type Engine interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Config configures an Orchestrator.
type Config struct {
	LLM       config.LLMConfig
	Providers *datasource.Providers

	// APIKey yields the Groq key; it is read once per run.
	// Defaults to GROQ_API_KEY with LLM.APIKey as the fallback.
	APIKey func() string

	// Engine overrides the runtime selected by LLM.Runtime.
	Engine Engine

	Logger *slog.Logger
}

// Orchestrator implements Runner over the country lookup tools.
type Orchestrator struct {
	engine    Engine
	providers *datasource.Providers
	apiKey    func() string
	timeout   time.Duration
	log       *slog.Logger

	mu        sync.RWMutex
	observers []Observer
}

var _ Runner = (*Orchestrator)(nil)

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Providers == nil {
		return nil, errors.New("agent: providers are required")
	}
	if cfg.APIKey == nil {
		cfg.APIKey = config.Credential(config.EnvGroqKey, cfg.LLM.APIKey)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	engine := cfg.Engine
	if engine == nil {
		switch strings.ToLower(cfg.LLM.Runtime) {
		case "", RuntimeEino:
			engine = newEinoEngine(cfg.LLM)
		case RuntimeNative:
			engine = newNativeEngine(cfg.LLM)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownRuntime, cfg.LLM.Runtime)
		}
	}

	return &Orchestrator{
		engine:    engine,
		providers: cfg.Providers,
		apiKey:    cfg.APIKey,
		timeout:   cfg.LLM.Timeout(),
		log:       cfg.Logger,
	}, nil
}

// Runtime returns the name of the engine in use.
func (o *Orchestrator) Runtime() string { return o.engine.Name() }

// Subscribe registers an observer for run events.
func (o *Orchestrator) Subscribe(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, obs)
}

// Run asks the model for the financial intelligence of a country.
func (o *Orchestrator) Run(ctx context.Context, country string) (*Answer, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return nil, ErrEmptyCountry
	}
	apiKey := o.apiKey()
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	run := &runState{id: uuid.NewString(), country: datasource.NormalizeCountry(country), orch: o}
	log := o.log.With("run_id", run.id, "country", run.country, "runtime", o.engine.Name())

	log.Info("agent run started")
	run.emit(Event{Type: EventRunStarted})

	text, err := o.engine.Generate(ctx, Request{
		APIKey: apiKey,
		System: SystemPrompt,
		User:   UserPrompt(country),
		Tools:  run.tools(ToolsFor(o.providers)),
	})
	if err != nil {
		log.Error("agent run failed", "error", err, "duration", time.Since(start))
		run.emit(Event{Type: EventRunFailed, Error: err.Error()})
		return nil, &RunError{RunID: run.id, Runtime: o.engine.Name(), Err: err}
	}

	answer := &Answer{
		RunID:     run.id,
		Country:   country,
		Text:      text,
		Runtime:   o.engine.Name(),
		ToolCalls: run.calls(),
		Duration:  time.Since(start),
	}
	log.Info("agent run completed", "tool_calls", len(answer.ToolCalls), "duration", answer.Duration)
	run.emit(Event{Type: EventRunCompleted})
	return answer, nil
}

func (o *Orchestrator) notify(ev Event) {
	o.mu.RLock()
	observers := append([]Observer(nil), o.observers...)
	o.mu.RUnlock()
	for _, obs := range observers {
		obs(ev)
	}
}
