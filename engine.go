package ruminate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/ruminate/agent"
	"github.com/casualjim/ruminate/api"
	"github.com/casualjim/ruminate/events"
	"github.com/casualjim/ruminate/internal/executor"
	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/patterns"
	"github.com/casualjim/ruminate/pkg/slogx"
	"github.com/casualjim/ruminate/reflection"
	"github.com/casualjim/ruminate/thread"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSessionBusy     = errors.New("session is busy")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyPrompt     = errors.New("prompt is empty")
)

// PatternRounds is the MaxRounds value that keeps the pattern's own bound.
const PatternRounds = -1

// Engine owns conversation sessions and drives them through the reflection
// loop of one pattern with one agent. Sessions are independent: each is
// stepped by at most one caller at a time, while different sessions may run
// concurrently.
type Engine struct {
	agent       *agent.Agent
	patternName string
	maxRounds   int
	parallelism int
	hook        events.Hook
	executor    executor.Executor
	logger      *slog.Logger

	pattern  patterns.Pattern
	command  executor.Command
	loop     *reflection.Loop
	sessions *haxmap.Map[string, *session]
}

type session struct {
	mu    sync.Mutex
	state *thread.State
}

// New creates an engine. Without options it runs the default pattern with
// the default agent in-process.
func New(options ...opts.Option[Engine]) (*Engine, error) {
	e := &Engine{
		patternName: patterns.Default,
		maxRounds:   PatternRounds,
		parallelism: 4,
		hook:        events.Noop{},
		logger:      slog.Default(),
		sessions:    haxmap.New[string, *session](),
	}
	if err := opts.Apply(e, options); err != nil {
		return nil, err
	}
	if e.maxRounds < PatternRounds {
		return nil, reflection.ErrNegativeRounds
	}
	if e.agent == nil {
		e.agent = agent.New()
	}
	e.logger = e.logger.With(slogx.LoggerName("ruminate.engine"))
	if e.executor == nil {
		e.executor = executor.NewLocal(e.logger, e.agent)
	}

	p, err := patterns.Lookup(e.patternName)
	if err != nil {
		return nil, err
	}
	if e.maxRounds != PatternRounds {
		p.MaxRounds = e.maxRounds
	}
	generate, critique, err := p.Instructions()
	if err != nil {
		return nil, err
	}
	e.pattern = p
	e.command = executor.Command{
		Agent:                e.agent.Name(),
		GenerateInstructions: generate,
		CritiqueInstructions: critique,
		MaxRounds:            p.MaxRounds,
		Hook:                 e.hook,
	}
	e.loop, err = p.Loop(e.agent, e.agent, reflection.WithHook(e.hook), reflection.WithLogger(e.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build loop: %w", err)
	}

	// remote workers resolve agents by name
	agent.Add(e.agent)
	return e, nil
}

// Pattern returns the pattern the engine runs, with the effective bound.
func (e *Engine) Pattern() patterns.Pattern {
	return e.pattern
}

// Agent returns the agent used for generating and critiquing.
func (e *Engine) Agent() *agent.Agent {
	return e.agent
}

// Len returns the number of live sessions.
func (e *Engine) Len() int {
	return int(e.sessions.Len())
}

// Start creates a session whose first turn is prompt.
func (e *Engine) Start(prompt string) (uuid.UUID, error) {
	if strings.TrimSpace(prompt) == "" {
		return uuid.Nil, ErrEmptyPrompt
	}
	return e.Resume(thread.New(messages.NewUser(prompt)).Checkpoint())
}

// Resume registers a session from a checkpoint, for example one returned by
// Session. A checkpoint without an id gets a fresh one.
func (e *Engine) Resume(cp thread.Checkpoint) (uuid.UUID, error) {
	st := cp.Restore()
	if _, loaded := e.sessions.GetOrSet(st.ID().String(), &session{state: st}); loaded {
		return uuid.Nil, fmt.Errorf("session %s already exists", st.ID())
	}
	e.logger.Debug("session started", slogx.Session(st.ID()))
	return st.ID(), nil
}

// acquire returns the locked session. The caller must unlock it.
func (e *Engine) acquire(id uuid.UUID) (*session, error) {
	s, ok := e.sessions.Get(id.String())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !s.mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, id)
	}
	return s, nil
}

// Step runs a single node of the session in-process and returns the node
// that runs next.
func (e *Engine) Step(ctx context.Context, id uuid.UUID) (thread.Node, error) {
	s, err := e.acquire(id)
	if err != nil {
		return thread.End, err
	}
	defer s.mu.Unlock()
	return e.loop.Step(ctx, s.state)
}

// Run drives the session to End with the engine's executor. A session that
// terminates is removed.
func (e *Engine) Run(ctx context.Context, id uuid.UUID) (reflection.Result, error) {
	s, err := e.acquire(id)
	if err != nil {
		return reflection.Result{}, err
	}
	defer s.mu.Unlock()

	res, err := e.executor.Run(ctx, e.command, s.state)
	if s.state.Terminated() {
		e.sessions.Del(id.String())
	}
	if err != nil {
		e.logger.WarnContext(ctx, "session run failed", slogx.Session(id), slogx.Error(err))
		return reflection.Result{}, err
	}
	e.logger.DebugContext(ctx, "session finished", slogx.Session(id), slog.Int("rounds", res.Rounds))
	return res, nil
}

// Ask starts a session for prompt and runs it to the end.
func (e *Engine) Ask(ctx context.Context, prompt string) (reflection.Result, error) {
	id, err := e.Start(prompt)
	if err != nil {
		return reflection.Result{}, err
	}
	return e.Run(ctx, id)
}

// AskAll answers every prompt in its own session, running up to the
// configured parallelism at once. Results are in prompt order.
func (e *Engine) AskAll(ctx context.Context, prompts ...string) []api.RunResult[reflection.Result] {
	results := make([]api.RunResult[reflection.Result], len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, prompt := range prompts {
		g.Go(func() error {
			res, err := e.Ask(gctx, prompt)
			results[i] = api.RunResult[reflection.Result]{Success: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Abandon drops a session. A run in progress keeps going on its own state
// but its outcome is no longer reachable through the engine.
func (e *Engine) Abandon(id uuid.UUID) error {
	if _, ok := e.sessions.GetAndDel(id.String()); !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.logger.Debug("session abandoned", slogx.Session(id))
	return nil
}

// Session returns a snapshot of the session.
func (e *Engine) Session(id uuid.UUID) (thread.Checkpoint, error) {
	s, err := e.acquire(id)
	if err != nil {
		return thread.Checkpoint{}, err
	}
	defer s.mu.Unlock()
	return s.state.Checkpoint(), nil
}
