package chat

import "errors"

var (
	// ErrStoreRequired is returned when a conversation store is not provided.
	ErrStoreRequired = errors.New("conversation store required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrChatModelRequired is returned when a chat model is not provided.
	ErrChatModelRequired = errors.New("chat model required")

	// ErrEmptyQuestion is returned when a chat request carries no question.
	ErrEmptyQuestion = errors.New("question must not be empty")
)
