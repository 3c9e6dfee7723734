package openai

import (
	"context"
	"log/slog"

	"github.com/lorekeep/lorekeep/ai"
	"github.com/lorekeep/lorekeep/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel implements ai.ChatModel using OpenAI-compatible chat APIs.
type ChatModel struct {
	client llms.Model
	logger *slog.Logger
}

// newChatModel is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChatModel(config *ai.Config) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		client: client,
		logger: slog.Default().With("component", "openai-chatmodel"),
	}, nil
}

// NewChatModel creates a new chat model using the provided configuration.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	return newChatModel(config)
}

// Complete invokes the model with the full ordered history and returns the
// answer text.
func (m *ChatModel) Complete(ctx context.Context, messages []core.Message) (string, error) {
	m.logger.Debug("generating completion", "messages", len(messages))

	response, err := m.client.GenerateContent(ctx, toContent(messages))
	if err != nil {
		m.logger.Error("failed to generate completion", "err", err)
		return "", err
	}

	if len(response.Choices) == 0 {
		m.logger.Warn("model returned no choices")
		return "", nil
	}

	return response.Choices[0].Content, nil
}

// StreamComplete invokes the model and pushes text deltas to fn as they
// arrive from the API.
func (m *ChatModel) StreamComplete(ctx context.Context, messages []core.Message, fn ai.StreamFunc) error {
	m.logger.Debug("generating streamed completion", "messages", len(messages))

	_, err := m.client.GenerateContent(ctx, toContent(messages),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return fn(ctx, string(chunk))
		}))
	if err != nil {
		m.logger.Error("streamed completion failed", "err", err)
		return err
	}

	return nil
}

// toContent converts conversation messages to the langchaingo wire format.
func toContent(messages []core.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.MessageContent{
			Role:  toRole(msg.Role),
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}
	return content
}

func toRole(role core.Role) llms.ChatMessageType {
	switch role {
	case core.RoleSystem:
		return llms.ChatMessageTypeSystem
	case core.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
