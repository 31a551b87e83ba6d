package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/seenimoa/fintel/internal/config"
	"github.com/seenimoa/fintel/internal/llm"
)

// einoEngine runs Eino's prebuilt ReAct agent against Groq through the
// OpenAI-compatible chat model.
type einoEngine struct {
	cfg config.LLMConfig
}

func newEinoEngine(cfg config.LLMConfig) *einoEngine {
	return &einoEngine{cfg: cfg}
}

func (e *einoEngine) Name() string { return RuntimeEino }

func (e *einoEngine) Generate(ctx context.Context, req Request) (string, error) {
	temperature := float32(e.cfg.Temperature)
	modelCfg := &openai.ChatModelConfig{
		APIKey:      req.APIKey,
		BaseURL:     e.cfg.BaseURL,
		Model:       e.cfg.Model,
		Temperature: &temperature,
		Timeout:     e.cfg.Timeout(),
	}
	if e.cfg.MaxTokens > 0 {
		maxTokens := e.cfg.MaxTokens
		modelCfg.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return "", fmt.Errorf("create chat model: %w", err)
	}

	baseTools := make([]tool.BaseTool, len(req.Tools))
	for i, t := range req.Tools {
		baseTools[i] = newEinoTool(t)
	}

	maxSteps := e.cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10
	}

	// Each ReAct step is a model node plus a tools node.
	agent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chatModel,
		ToolsConfig:      compose.ToolsNodeConfig{Tools: baseTools},
		MaxStep:          maxSteps * 2,
		MessageModifier: func(ctx context.Context, msgs []*schema.Message) []*schema.Message {
			return append([]*schema.Message{schema.SystemMessage(req.System)}, msgs...)
		},
	})
	if err != nil {
		return "", fmt.Errorf("create ReAct agent: %w", err)
	}

	resp, err := agent.Generate(ctx, []*schema.Message{schema.UserMessage(req.User)})
	if err != nil {
		return "", fmt.Errorf("agent generate failed: %w", err)
	}
	return resp.Content, nil
}

// einoTool exposes an llm.Tool as an Eino invokable tool.
type einoTool struct {
	t llm.Tool
}

var _ tool.InvokableTool = (*einoTool)(nil)

func newEinoTool(t llm.Tool) *einoTool { return &einoTool{t: t} }

func (e *einoTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := make(map[string]*schema.ParameterInfo)
	if e.t.Parameters != nil {
		for name, prop := range e.t.Parameters.Properties {
			params[name] = &schema.ParameterInfo{
				Type:     schema.DataType(prop.Type),
				Desc:     prop.Description,
				Enum:     prop.Enum,
				Required: slices.Contains(e.t.Parameters.Required, name),
			}
		}
	}
	return &schema.ToolInfo{
		Name:        e.t.Name,
		Desc:        e.t.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun executes the wrapped handler. Handler errors are returned to the
// model as text, like the native loop does, so one bad call does not end the run.
func (e *einoTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	if argumentsInJSON == "" {
		argumentsInJSON = "{}"
	}
	out, err := e.t.Handler(ctx, json.RawMessage(argumentsInJSON))
	if err != nil {
		return fmt.Sprintf("Error executing tool %s: %v", e.t.Name, err), nil
	}
	return out, nil
}
