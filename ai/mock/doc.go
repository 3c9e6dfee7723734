// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.ChatModel, ai.Embedder,
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic
// behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	answer, err := provider.ChatModel().Complete(ctx, history)
//
//	// Custom behavior injection
//	model := mock.NewMockChatModel()
//	model.CompleteFunc = func(ctx context.Context, messages []core.Message) (string, error) {
//	    return "canned answer", nil
//	}
//
// # Default Behavior
//
//   - MockChatModel: Echoes a canned answer derived from the last message;
//     streaming emits it word by word
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockProvider: Aggregates mock chat model and embedder
package mock
