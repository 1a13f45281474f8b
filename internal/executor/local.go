package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casualjim/ruminate/agent"
	"github.com/casualjim/ruminate/pkg/slogx"
	"github.com/casualjim/ruminate/reflection"
	"github.com/casualjim/ruminate/thread"
)

var _ Executor = (*Local)(nil)

// Local runs the loop in the calling goroutine.
type Local struct {
	logger *slog.Logger
	agents map[string]*agent.Agent
}

// NewLocal creates a local executor. Commands naming one of the given agents
// run with that agent; other names are looked up in the agent registry.
func NewLocal(logger *slog.Logger, agents ...*agent.Agent) *Local {
	l := &Local{
		logger: loggerOrDefault(logger).With(slogx.LoggerName("ruminate.executor.local")),
		agents: make(map[string]*agent.Agent, len(agents)),
	}
	for _, a := range agents {
		l.agents[a.Name()] = a
	}
	return l
}

func (l *Local) agent(name string) (*agent.Agent, bool) {
	if a, ok := l.agents[name]; ok {
		return a, true
	}
	return agent.Get(name)
}

func (l *Local) Run(ctx context.Context, cmd Command, st *thread.State) (reflection.Result, error) {
	if err := cmd.validate(); err != nil {
		return reflection.Result{}, err
	}
	a, ok := l.agent(cmd.Agent)
	if !ok {
		return reflection.Result{}, fmt.Errorf("%w: %s", ErrUnknownAgent, cmd.Agent)
	}

	loop, err := cmd.loop(a, a, reflection.WithHook(cmd.Hook), reflection.WithLogger(l.logger))
	if err != nil {
		return reflection.Result{}, fmt.Errorf("failed to build loop: %w", err)
	}
	l.logger.DebugContext(ctx, "running session", slogx.Session(st.ID()), slog.String("agent", cmd.Agent))
	return loop.Run(ctx, st)
}
