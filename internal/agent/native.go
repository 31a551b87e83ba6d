package agent

import (
	"context"
	"net/http"

	"github.com/seenimoa/fintel/internal/config"
	"github.com/seenimoa/fintel/internal/llm"
)

// nativeEngine runs the in-repo llm tool loop against Groq.
type nativeEngine struct {
	cfg        config.LLMConfig
	httpClient *http.Client
}

func newNativeEngine(cfg config.LLMConfig) *nativeEngine {
	return &nativeEngine{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout()}}
}

func (e *nativeEngine) Name() string { return RuntimeNative }

func (e *nativeEngine) Generate(ctx context.Context, req Request) (string, error) {
	provider, err := llm.NewGroqProvider(req.APIKey,
		llm.WithGroqBaseURL(e.cfg.BaseURL),
		llm.WithGroqModel(e.cfg.Model),
		llm.WithGroqHTTPClient(e.httpClient),
	)
	if err != nil {
		return "", err
	}

	opts := &llm.ChatOptions{
		Temperature: llm.Temperature(e.cfg.Temperature),
		MaxTokens:   e.cfg.MaxTokens,
	}
	messages := []llm.Message{llm.SystemMessage(req.System), llm.UserMessage(req.User)}

	result, err := llm.RunToolLoop(ctx, provider, llm.NewToolRegistry(req.Tools...), messages, opts, e.cfg.MaxSteps)
	if err != nil {
		return "", err
	}
	return result.Response.Content, nil
}
