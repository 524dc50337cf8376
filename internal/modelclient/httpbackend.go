package modelclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/flexicli/flexicli/internal/config"
	"github.com/flexicli/flexicli/internal/errs"
)

// HTTPBackend is the default Backend (spec §4.7): an OpenAI-compatible chat
// completion endpoint reached through langchaingo's openai client. A custom
// Endpoint lets it address any compatible gateway (Azure, a local
// vLLM/Ollama proxy, etc).
type HTTPBackend struct {
	llm   *openai.LLM
	model string
}

// NewHTTPBackend builds an HTTPBackend from cfg.Model (spec §6: MODEL_*
// env vars / config.yaml `model:` block).
func NewHTTPBackend(cfg config.ModelConfig) (*HTTPBackend, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
	}
	if cfg.APIKey.IsSet() {
		opts = append(opts, openai.WithToken(cfg.APIKey.Value()))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
	}
	if cfg.APIVersion != "" {
		opts = append(opts, openai.WithAPIVersion(cfg.APIVersion))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "modelclient.new_backend", "failed to construct openai client", err)
	}
	return &HTTPBackend{llm: llm, model: cfg.Model}, nil
}

// Chat implements Backend by delegating to the configured LLM, streaming
// chunks through onChunk when non-nil and classifying the resulting error
// via its HTTP status (spec §4.7: only 429/502/503 are retried by Client).
func (b *HTTPBackend) Chat(ctx context.Context, messages []ChatMessage, mode string, onChunk ChunkFunc) (Usage, error) {
	content := toMessageContent(messages)

	var callOpts []llms.CallOption
	if onChunk != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			onChunk(string(chunk))
			return nil
		}))
	}

	resp, err := b.llm.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return Usage{}, classifyHTTPError(err)
	}
	if len(resp.Choices) == 0 {
		return Usage{}, errs.New(errs.KindTransientIO, "modelclient.chat", "empty response from model")
	}

	return usageFromGenerationInfo(resp.Choices[0].GenerationInfo), nil
}

func toMessageContent(messages []ChatMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case "system":
			role = llms.ChatMessageTypeSystem
		case "assistant":
			role = llms.ChatMessageTypeAI
		case "tool":
			role = llms.ChatMessageTypeTool
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

func usageFromGenerationInfo(info map[string]any) Usage {
	var u Usage
	if v, ok := info["PromptTokens"].(int); ok {
		u.PromptTokens = v
	}
	if v, ok := info["CompletionTokens"].(int); ok {
		u.CompletionTokens = v
	}
	return u
}

// classifyHTTPError maps the status embedded in langchaingo's error message
// onto the error Kinds the Client's retry policy understands. langchaingo
// does not expose a typed HTTP status, so this inspects the message text
// the same way errs classifies opaque upstream errors elsewhere.
func classifyHTTPError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429"):
		return errs.Wrap(errs.KindRateLimited, "modelclient.chat", "rate limited", err).WithField("http_status", http.StatusTooManyRequests)
	case strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return errs.Wrap(errs.KindTransientIO, "modelclient.chat", "upstream unavailable", err)
	default:
		return errs.Wrap(errs.KindValidation, "modelclient.chat", "model request failed", err)
	}
}
