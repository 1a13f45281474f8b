package executor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casualjim/ruminate/events"
	"github.com/casualjim/ruminate/reflection"
	"github.com/casualjim/ruminate/thread"
	"github.com/fogfish/opts"
)

// ErrUnknownAgent is returned when the command names an agent that is not
// registered.
var ErrUnknownAgent = errors.New("unknown agent")

// Executor runs a session until the loop reaches End.
type Executor interface {
	Run(ctx context.Context, cmd Command, st *thread.State) (reflection.Result, error)
}

// Command describes one run. The instructions are already rendered.
type Command struct {
	Agent                string
	GenerateInstructions string
	CritiqueInstructions string
	MaxRounds            int
	Hook                 events.Hook
}

func (c Command) validate() error {
	var err error
	if c.Agent == "" {
		err = errors.Join(err, errors.New("agent is required"))
	}
	if c.MaxRounds < 0 {
		err = errors.Join(err, reflection.ErrNegativeRounds)
	}
	return err
}

func (c Command) loop(gen reflection.Generator, critic reflection.Critic, extra ...opts.Option[reflection.Loop]) (*reflection.Loop, error) {
	options := []opts.Option[reflection.Loop]{
		reflection.WithGenerator(gen),
		reflection.WithCritic(critic),
		reflection.WithGenerateInstructions(c.GenerateInstructions),
		reflection.WithCritiqueInstructions(c.CritiqueInstructions),
		reflection.WithMaxRounds(c.MaxRounds),
	}
	return reflection.New(append(options, extra...)...)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
