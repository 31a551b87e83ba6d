package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Groq defaults.
const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// GroqProvider implements LLMProvider for Groq's OpenAI-compatible
// Chat Completions API.
type GroqProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// GroqOption configures the Groq provider.
type GroqOption func(*GroqProvider)

// WithGroqBaseURL sets a custom base URL (e.g., a proxy or a test server).
func WithGroqBaseURL(url string) GroqOption {
	return func(p *GroqProvider) {
		if url != "" {
			p.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithGroqModel sets the default model.
func WithGroqModel(model string) GroqOption {
	return func(p *GroqProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithGroqHTTPClient sets a custom HTTP client.
func WithGroqHTTPClient(client *http.Client) GroqOption {
	return func(p *GroqProvider) { p.client = client }
}

// NewGroqProvider creates a Groq provider.
func NewGroqProvider(apiKey string, opts ...GroqOption) (*GroqProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &GroqProvider{
		apiKey:  apiKey,
		baseURL: DefaultGroqBaseURL,
		model:   DefaultGroqModel,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *GroqProvider) Name() string  { return ProviderGroq }
func (p *GroqProvider) Model() string { return p.model }

// Ping verifies the API key by listing models.
func (p *GroqProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: invalid API key", ErrNoAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode)
	}
	return nil
}

// Chat sends a chat completion request to Groq.
func (p *GroqProvider) Chat(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := p.resolveModel(opts)

	data, err := json.Marshal(p.buildRequest(messages, tools, model, opts))
	if err != nil {
		return nil, fmt.Errorf("groq: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return nil, err
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("groq: decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return parseResponse(&result, start), nil
}

// ── Wire Types ──

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type chatTool struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type functionDef struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters"`
}

type chatToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
	Model   string       `json:"model"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ── Helpers ──

func (p *GroqProvider) resolveModel(opts *ChatOptions) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return p.model
}

func (p *GroqProvider) buildRequest(messages []Message, tools []Tool, model string, opts *ChatOptions) chatRequest {
	r := chatRequest{
		Model:    model,
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		r.Tools = convertTools(tools)
		r.ToolChoice = "auto"
	}
	if opts != nil {
		r.Temperature = opts.Temperature
		if opts.MaxTokens > 0 {
			r.MaxTokens = &opts.MaxTokens
		}
	}
	return r
}

func checkError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrNoAPIKey, apiErr.Error.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimit, apiErr.Error.Message)
		case http.StatusBadRequest, http.StatusNotFound:
			if strings.Contains(apiErr.Error.Code, "context_length") {
				return fmt.Errorf("%w: %s", ErrContextLength, apiErr.Error.Message)
			}
			if strings.Contains(apiErr.Error.Code, "model_not_found") || strings.Contains(apiErr.Error.Code, "model_decommissioned") {
				return fmt.Errorf("%w: %s", ErrInvalidModel, apiErr.Error.Message)
			}
		}
		return fmt.Errorf("groq: API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: HTTP %d", ErrProviderDown, resp.StatusCode)
	}
	return fmt.Errorf("groq: HTTP %d: %s", resp.StatusCode, string(body))
}

func parseResponse(raw *chatResponse, start time.Time) *Response {
	choice := raw.Choices[0]
	r := &Response{
		Content:      choice.Message.Content,
		FinishReason: FinishReason(choice.FinishReason),
		Model:        raw.Model,
		Provider:     ProviderGroq,
		Latency:      time.Since(start),
		Usage:        raw.Usage,
	}
	for _, tc := range choice.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		r.ToolCalls = append(r.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	return r
}

// ── Conversion Helpers ──

func convertMessages(messages []Message) []chatMessage {
	out := make([]chatMessage, len(messages))
	for i, m := range messages {
		msg := chatMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, chatToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: functionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out[i] = msg
	}
	return out
}

func convertTools(tools []Tool) []chatTool {
	out := make([]chatTool, len(tools))
	for i, t := range tools {
		out[i] = chatTool{
			Type: "function",
			Function: functionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}
