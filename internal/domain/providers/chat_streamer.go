package providers

import (
	"context"

	"github.com/aroundme/aroundme/internal/domain/entities"
)

// ChatStreamer produces an assistant reply as an ordered token stream.
// Implementations call onDelta once per token in arrival order and
// return the full assembled reply when the stream finishes.
type ChatStreamer interface {
	StreamReply(ctx context.Context, system string, history []entities.TranscriptEntry, onDelta func(token string)) (string, error)
}
