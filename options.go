package ruminate

import (
	"errors"
	"log/slog"

	"github.com/casualjim/ruminate/agent"
	"github.com/casualjim/ruminate/events"
	"github.com/casualjim/ruminate/internal/executor"
	"github.com/fogfish/opts"
)

var (
	// Pattern selects the pattern by name.
	Pattern = opts.ForName[Engine, string]("patternName")
	// MaxRounds overrides the pattern's bound. PatternRounds keeps it.
	MaxRounds = opts.ForName[Engine, int]("maxRounds")
)

// Agent sets the agent that generates and critiques.
func Agent(a *agent.Agent) opts.Option[Engine] {
	return opts.Type[Engine](func(e *Engine) error {
		e.agent = a
		return nil
	})
}

// Hook adds hooks that receive the events of every session.
func Hook(hooks ...events.Hook) opts.Option[Engine] {
	return opts.Type[Engine](func(e *Engine) error {
		e.hook = events.Multi(append([]events.Hook{e.hook}, hooks...)...)
		return nil
	})
}

// Parallelism bounds how many sessions AskAll runs at once.
func Parallelism(n int) opts.Option[Engine] {
	return opts.Type[Engine](func(e *Engine) error {
		if n < 1 {
			return errors.New("parallelism must be at least 1")
		}
		e.parallelism = n
		return nil
	})
}

// Executor replaces the in-process executor used by Run.
func Executor(x executor.Executor) opts.Option[Engine] {
	return opts.Type[Engine](func(e *Engine) error {
		if x != nil {
			e.executor = x
		}
		return nil
	})
}

func Logger(logger *slog.Logger) opts.Option[Engine] {
	return opts.Type[Engine](func(e *Engine) error {
		if logger != nil {
			e.logger = logger
		}
		return nil
	})
}
