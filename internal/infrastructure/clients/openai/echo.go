package openai

import (
	"context"
	"strings"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/providers"
)

// EchoStreamer is the fallback streamer used when no API key is
// configured. It streams a canned acknowledgement word by word so the
// rest of the chat pipeline still exercises its streaming path.
type EchoStreamer struct{}

var _ providers.ChatStreamer = (*EchoStreamer)(nil)

// NewEchoStreamer creates the fallback streamer.
func NewEchoStreamer() *EchoStreamer {
	return &EchoStreamer{}
}

// StreamReply echoes the last user message back in a stub reply.
func (e *EchoStreamer) StreamReply(ctx context.Context, _ string, history []entities.TranscriptEntry, onDelta func(string)) (string, error) {
	lastUser := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == entities.RoleUser {
			lastUser = history[i].Text
			break
		}
	}

	reply := "I heard: " + lastUser + ". The assistant is not configured yet, so this is an echo."
	var full strings.Builder
	for _, word := range strings.SplitAfter(reply, " ") {
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		default:
		}
		full.WriteString(word)
		if onDelta != nil {
			onDelta(word)
		}
	}
	return full.String(), nil
}
