package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/seenimoa/fintel/internal/llm"
)

// EventType names a step of an orchestrator run.
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventToolCalled   EventType = "tool_called"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
)

// Event is published to observers while a run progresses.
type Event struct {
	RunID   string    `json:"run_id"`
	Type    EventType `json:"type"`
	Country string    `json:"country"`
	Tool    string    `json:"tool,omitempty"`
	Args    string    `json:"args,omitempty"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// Observer receives run events. It is called synchronously and must not block.
type Observer func(Event)

// runState tracks one run's identity and the tools it called.
type runState struct {
	id      string
	country string
	orch    *Orchestrator

	mu    sync.Mutex
	names []string
}

func (r *runState) emit(ev Event) {
	ev.RunID = r.id
	ev.Country = r.country
	ev.Time = time.Now().UTC()
	r.orch.notify(ev)
}

// tools wraps each handler so every invocation is recorded and published.
func (r *runState) tools(tools []llm.Tool) []llm.Tool {
	out := make([]llm.Tool, len(tools))
	for i, t := range tools {
		handler := t.Handler
		name := t.Name
		t.Handler = func(ctx context.Context, args json.RawMessage) (string, error) {
			r.mu.Lock()
			r.names = append(r.names, name)
			r.mu.Unlock()
			r.emit(Event{Type: EventToolCalled, Tool: name, Args: string(args)})
			return handler(ctx, args)
		}
		out[i] = t
	}
	return out
}

func (r *runState) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
