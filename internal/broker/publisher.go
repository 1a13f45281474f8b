package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casualjim/ruminate/events"
	"github.com/casualjim/ruminate/pkg/slogx"
	"github.com/google/uuid"
)

// SessionSubject is the topic name used for the events of one session.
func SessionSubject(id uuid.UUID) string {
	return fmt.Sprintf("ruminate.sessions.%s", id)
}

// Publisher returns a hook that publishes every event to the topic. Publish
// errors are logged and otherwise ignored.
func Publisher(topic Topic) events.Hook {
	return &publisher{topic: topic}
}

type publisher struct {
	topic Topic
}

func (p *publisher) publish(ctx context.Context, e events.Event) {
	if err := p.topic.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "failed to publish event", slogx.LoggerName("ruminate.broker"), slogx.Error(err))
	}
}

func (p *publisher) OnStep(ctx context.Context, e events.Step)       { p.publish(ctx, e) }
func (p *publisher) OnTurn(ctx context.Context, e events.TurnAdded)  { p.publish(ctx, e) }
func (p *publisher) OnFailure(ctx context.Context, e events.Failure) { p.publish(ctx, e) }
func (p *publisher) OnEnd(ctx context.Context, e events.End)         { p.publish(ctx, e) }
