package provider

import (
	"context"
	"strings"
)

// Collect drains a completion stream and returns the final text.
//
// onChunk, when not nil, receives the content of every Chunk as it arrives.
// The first Error event ends collection with that error. If the stream closes
// without a Response the concatenated chunks are returned. When ctx is done
// the rest of the stream is drained in the background so the producer never
// blocks.
func Collect(ctx context.Context, events <-chan StreamEvent, onChunk func(string)) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			go drain(events)
			return "", ctx.Err()
		case event, ok := <-events:
			if !ok {
				return sb.String(), nil
			}
			switch e := event.(type) {
			case Chunk:
				if e.Content == "" {
					continue
				}
				sb.WriteString(e.Content)
				if onChunk != nil {
					onChunk(e.Content)
				}
			case Response:
				go drain(events)
				return e.Content, nil
			case Error:
				go drain(events)
				return "", e
			}
		}
	}
}

func drain(events <-chan StreamEvent) {
	for range events { //nolint:revive
	}
}
