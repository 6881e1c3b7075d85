package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider implements Provider against any OpenAI-compatible
// chat-completions endpoint (OpenAI, Azure proxies, vLLM).
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAI creates a provider for an OpenAI-compatible endpoint. An empty
// baseURL targets api.openai.com; an empty apiKey falls back to the
// OPENAI_API_KEY environment variable.
func NewOpenAI(baseURL, apiKey string) *OpenAIProvider {
	var opts []option.RequestOption
	if baseURL != "" {
		// The SDK resolves endpoint paths relative to the base URL, so a
		// missing trailing slash would drop the last path segment.
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...)}
}

// Chat sends a chat-completions request and maps the reply to ChatResponse.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, convertMessage(msg))
	}

	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.Schema.Name,
					Schema: req.Schema.Schema,
				},
			},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai response contained no choices")
	}

	content := completion.Choices[0].Message.Content
	out := &ChatResponse{
		Content: content,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	if req.Schema != nil {
		if structured := extractJSONObject(content); structured != nil {
			out.Structured = structured
		}
	}
	return out, nil
}

// convertMessage maps a Telos message to the SDK's union param.
func convertMessage(msg Message) openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case RoleSystem:
		return openai.SystemMessage(msg.Content)
	case RoleAssistant:
		return openai.AssistantMessage(msg.Content)
	default:
		return openai.UserMessage(msg.Content)
	}
}

var _ Provider = (*OpenAIProvider)(nil)
