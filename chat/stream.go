package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lorekeep/lorekeep/ai"
	"github.com/lorekeep/lorekeep/core"
)

// DoneFrame is the terminal sentinel emitted after a simple stream ends.
const DoneFrame = "data: [DONE]\n\n"

type streamPayload struct {
	Content string `json:"content"`
}

// sseFrame wraps a delta in a server-sent-event frame with the content
// JSON-escaped.
func sseFrame(delta string) (string, error) {
	payload, err := json.Marshal(streamPayload{Content: delta})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data: %s\n\n", payload), nil
}

// SimpleStream is a stateless single-turn completion: no retrieval, no
// conversation history. Each model delta reaches fn as an SSE frame
// (`data: {"content":"..."}`), followed by a terminal `data: [DONE]` frame
// once the stream completes.
func (o *Orchestrator) SimpleStream(ctx context.Context, prompt string, fn ai.StreamFunc) error {
	if prompt == "" {
		return ErrEmptyQuestion
	}

	messages := []core.Message{{Role: core.RoleUser, Content: prompt}}
	err := o.model.StreamComplete(ctx, messages, func(ctx context.Context, delta string) error {
		frame, err := sseFrame(delta)
		if err != nil {
			return err
		}
		return fn(ctx, frame)
	})
	if err != nil {
		o.logger.Error("simple stream ended with error", "err", err)
		return err
	}

	return fn(ctx, DoneFrame)
}
