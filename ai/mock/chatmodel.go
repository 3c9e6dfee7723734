package mock

import (
	"context"
	"strings"

	"github.com/lorekeep/lorekeep/ai"
	"github.com/lorekeep/lorekeep/core"
)

// MockChatModel is a test double for ai.ChatModel.
// It allows custom behavior injection via function fields.
type MockChatModel struct {
	// CompleteFunc is called by Complete if set.
	// If nil, the model echoes a canned answer derived from the last message.
	CompleteFunc func(ctx context.Context, messages []core.Message) (string, error)

	// StreamFunc is called by StreamComplete if set.
	// If nil, the default answer is emitted word by word.
	StreamFunc func(ctx context.Context, messages []core.Message, fn ai.StreamFunc) error

	callCount   int
	lastHistory []core.Message
}

// NewMockChatModel creates a mock chat model with default canned behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Complete records the call and returns a deterministic canned answer.
func (m *MockChatModel) Complete(ctx context.Context, messages []core.Message) (string, error) {
	m.callCount++
	m.lastHistory = append([]core.Message(nil), messages...)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages)
	}

	return defaultAnswer(messages), nil
}

// StreamComplete records the call and emits the canned answer word by word.
func (m *MockChatModel) StreamComplete(ctx context.Context, messages []core.Message, fn ai.StreamFunc) error {
	m.callCount++
	m.lastHistory = append([]core.Message(nil), messages...)

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, messages, fn)
	}

	words := strings.Fields(defaultAnswer(messages))
	for i, word := range words {
		if i > 0 {
			word = " " + word
		}
		if err := fn(ctx, word); err != nil {
			return err
		}
	}
	return nil
}

// CallCount returns how many times the model was invoked.
func (m *MockChatModel) CallCount() int {
	return m.callCount
}

// LastHistory returns a copy of the message history from the most recent call.
func (m *MockChatModel) LastHistory() []core.Message {
	return m.lastHistory
}

// Reset clears the call count and injected behavior.
func (m *MockChatModel) Reset() {
	m.callCount = 0
	m.lastHistory = nil
	m.CompleteFunc = nil
	m.StreamFunc = nil
}

func defaultAnswer(messages []core.Message) string {
	if len(messages) == 0 {
		return "mock answer"
	}
	return "mock answer to: " + messages[len(messages)-1].Content
}
