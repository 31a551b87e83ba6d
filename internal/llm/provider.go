// Package llm provides the chat-completion types, the tool registry and the
// tool-calling loop behind fintel's native agent runtime, plus a Groq
// provider speaking the OpenAI-compatible Chat Completions protocol.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ProviderGroq is the provider identifier reported in responses.
const ProviderGroq = "groq"

// Common errors returned by LLM providers.
var (
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrRateLimit     = errors.New("llm: rate limit exceeded")
	ErrContextLength = errors.New("llm: context length exceeded")
	ErrProviderDown  = errors.New("llm: provider unavailable")
	ErrInvalidModel  = errors.New("llm: invalid model")
	ErrToolNotFound  = errors.New("llm: tool not found")
	ErrMaxIterations = errors.New("llm: tool loop exceeded max iterations")
	ErrEmptyResponse = errors.New("llm: response has no choices")
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
)

// Message represents a single message in a conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // for tool result messages
	Name       string     `json:"name,omitempty"`         // for tool result messages
}

// ToolCall represents a function/tool call requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON-encoded arguments
}

// Response represents a complete response from the LLM.
type Response struct {
	Content      string        `json:"content"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	FinishReason FinishReason  `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Model        string        `json:"model"`
	Provider     string        `json:"provider"`
	Latency      time.Duration `json:"latency"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another request's usage.
func (u *Usage) Add(o Usage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}

// ChatOptions configures a single chat request.
// Temperature is a pointer so an explicit 0 reaches the API.
type ChatOptions struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// Temperature returns a pointer for ChatOptions.Temperature.
func Temperature(t float64) *float64 { return &t }

// LLMProvider is the interface the tool loop drives.
type LLMProvider interface {
	// Name returns the provider identifier (e.g., "groq").
	Name() string

	// Chat sends a conversation and returns a complete response.
	// tools may be nil if no tool calling is needed.
	Chat(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error)

	// Ping checks if the provider is reachable and the API key is valid.
	Ping(ctx context.Context) error
}

// SystemMessage creates a system prompt message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolResultMessage creates a tool result message.
func ToolResultMessage(toolCallID, name, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		Name:       name,
	}
}

// AssistantToolCallMessage creates an assistant message that contains tool calls.
func AssistantToolCallMessage(content string, toolCalls []ToolCall) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	}
}

// HasToolCalls returns true if the response contains tool calls.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	if r.HasToolCalls() {
		return fmt.Sprintf("[%s/%s] %d tool call(s), %d tokens, %v",
			r.Provider, r.Model, len(r.ToolCalls), r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
	}
	truncated := r.Content
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, truncated, r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}
