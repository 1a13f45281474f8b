package events

import (
	"context"
	"log/slog"

	"github.com/casualjim/ruminate/pkg/slogx"
)

// Hook receives loop events. Implementations are called synchronously from
// the step that produced the event and should return quickly.
type Hook interface {
	OnStep(context.Context, Step)
	OnTurn(context.Context, TurnAdded)
	OnFailure(context.Context, Failure)
	OnEnd(context.Context, End)
}

// Noop is a Hook that ignores everything.
type Noop struct{}

func (Noop) OnStep(context.Context, Step)       {}
func (Noop) OnTurn(context.Context, TurnAdded)  {}
func (Noop) OnFailure(context.Context, Failure) {}
func (Noop) OnEnd(context.Context, End)         {}

// Multi fans events out to every non-nil hook, in order.
func Multi(hooks ...Hook) Hook {
	filtered := make(multiHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

type multiHook []Hook

func (m multiHook) OnStep(ctx context.Context, e Step) {
	for _, h := range m {
		h.OnStep(ctx, e)
	}
}

func (m multiHook) OnTurn(ctx context.Context, e TurnAdded) {
	for _, h := range m {
		h.OnTurn(ctx, e)
	}
}

func (m multiHook) OnFailure(ctx context.Context, e Failure) {
	for _, h := range m {
		h.OnFailure(ctx, e)
	}
}

func (m multiHook) OnEnd(ctx context.Context, e End) {
	for _, h := range m {
		h.OnEnd(ctx, e)
	}
}

// Logging returns a Hook that writes events to the given logger. Failures
// are logged at warn level, or error level when they reset the session.
func Logging(logger *slog.Logger) Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingHook{log: logger.With(slogx.LoggerName("ruminate.events"))}
}

type loggingHook struct {
	log *slog.Logger
}

func (l *loggingHook) OnStep(ctx context.Context, e Step) {
	l.log.DebugContext(ctx, "step", slogx.Session(e.SessionID), slogx.Stringer("node", e.Node), slog.Int("round", e.Round))
}

func (l *loggingHook) OnTurn(ctx context.Context, e TurnAdded) {
	l.log.DebugContext(ctx, "turn added",
		slogx.Session(e.SessionID),
		slogx.Stringer("node", e.Node),
		slog.Int("round", e.Round),
		slogx.Stringer("role", e.Turn.Role()),
	)
}

func (l *loggingHook) OnFailure(ctx context.Context, e Failure) {
	level := slog.LevelWarn
	if e.Reset {
		level = slog.LevelError
	}
	l.log.Log(ctx, level, "model call failed",
		slogx.Session(e.SessionID),
		slogx.Stringer("node", e.Node),
		slog.Int("round", e.Round),
		slog.Bool("reset", e.Reset),
		slogx.Error(e.Err),
	)
}

func (l *loggingHook) OnEnd(ctx context.Context, e End) {
	l.log.InfoContext(ctx, "loop finished", slogx.Session(e.SessionID), slog.Int("rounds", e.Rounds))
}

// Dispatch calls the hook method matching the event's type. It reports false
// for events it does not know.
func Dispatch(ctx context.Context, hook Hook, event Event) bool {
	switch e := event.(type) {
	case Step:
		hook.OnStep(ctx, e)
	case TurnAdded:
		hook.OnTurn(ctx, e)
	case Failure:
		hook.OnFailure(ctx, e)
	case End:
		hook.OnEnd(ctx, e)
	default:
		return false
	}
	return true
}

// Channel returns a Hook that forwards every event to ch. Sends respect ctx
// cancellation so a stalled reader cannot block a loop forever.
func Channel(ch chan<- Event) Hook {
	return channelHook{ch: ch}
}

type channelHook struct {
	ch chan<- Event
}

func (c channelHook) send(ctx context.Context, e Event) {
	select {
	case c.ch <- e:
	case <-ctx.Done():
	}
}

func (c channelHook) OnStep(ctx context.Context, e Step)       { c.send(ctx, e) }
func (c channelHook) OnTurn(ctx context.Context, e TurnAdded)  { c.send(ctx, e) }
func (c channelHook) OnFailure(ctx context.Context, e Failure) { c.send(ctx, e) }
func (c channelHook) OnEnd(ctx context.Context, e End)         { c.send(ctx, e) }
