package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Tool represents a function/tool that can be called by the LLM.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters"`
	Handler     ToolHandler `json:"-"` // excluded from JSON serialization
}

// ToolHandler is a function that executes a tool call and returns a string result.
type ToolHandler func(ctx context.Context, args json.RawMessage) (string, error)

// JSONSchema represents a JSON Schema definition for tool parameters.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
}

// ObjectSchema creates a JSON Schema for an object with the given properties.
func ObjectSchema(desc string, props map[string]*JSONSchema, required ...string) *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: desc,
		Properties:  props,
		Required:    required,
	}
}

// StringProp creates a JSON Schema for a string property.
func StringProp(desc string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: desc}
}

// ToolRegistry manages available tools and executes tool calls.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry creates a registry holding tools.
func NewToolRegistry(tools ...Tool) *ToolRegistry {
	r := &ToolRegistry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool to the registry. Overwrites if already exists.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name, so requests built from
// the registry are stable.
func (r *ToolRegistry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns the sorted names of all registered tools.
func (r *ToolRegistry) Names() []string {
	tools := r.List()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// Execute runs a tool call and returns the string result.
func (r *ToolRegistry) Execute(ctx context.Context, call ToolCall) (string, error) {
	tool, ok := r.Get(call.Name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}
	if tool.Handler == nil {
		return "", fmt.Errorf("llm: tool %q has no handler", call.Name)
	}
	return tool.Handler(ctx, call.Arguments)
}

// ExecuteAll runs all tool calls concurrently and returns results in order.
func (r *ToolRegistry) ExecuteAll(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			output, err := r.Execute(ctx, call)
			results[i] = ToolResult{
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    output,
				Err:        err,
			}
		}()
	}
	wg.Wait()
	return results
}

// ToolResult represents the result of executing a tool.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Err        error  `json:"-"`
}

// ToMessage converts a ToolResult to a Message for feeding back to the LLM.
func (tr ToolResult) ToMessage() Message {
	content := tr.Content
	if tr.Err != nil {
		content = fmt.Sprintf("Error executing tool %s: %v", tr.Name, tr.Err)
	}
	return ToolResultMessage(tr.ToolCallID, tr.Name, content)
}

// LoopResult is the outcome of RunToolLoop.
type LoopResult struct {
	Response   *Response
	Messages   []Message
	Iterations int
	Usage      Usage
}

// RunToolLoop executes the LLM tool-calling loop:
// 1. Send messages to LLM
// 2. If LLM returns tool calls, execute them
// 3. Append tool results to messages
// 4. Repeat until LLM returns a text response or maxIterations is reached
//
// The caller's messages slice is not modified.
func RunToolLoop(ctx context.Context, provider LLMProvider, registry *ToolRegistry,
	messages []Message, opts *ChatOptions, maxIterations int) (*LoopResult, error) {

	if maxIterations <= 0 {
		maxIterations = 10
	}

	out := &LoopResult{Messages: append([]Message(nil), messages...)}
	tools := registry.List()

	for i := 0; i < maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		resp, err := provider.Chat(ctx, out.Messages, tools, opts)
		if err != nil {
			return out, err
		}
		out.Iterations++
		out.Usage.Add(resp.Usage)

		if !resp.HasToolCalls() {
			out.Response = resp
			return out, nil
		}

		out.Messages = append(out.Messages, AssistantToolCallMessage(resp.Content, resp.ToolCalls))
		for _, result := range registry.ExecuteAll(ctx, resp.ToolCalls) {
			out.Messages = append(out.Messages, result.ToMessage())
		}
	}

	return out, fmt.Errorf("%w (%d)", ErrMaxIterations, maxIterations)
}
