package reflection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casualjim/ruminate/events"
	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/pkg/slogx"
	"github.com/casualjim/ruminate/thread"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// DefaultMaxRounds is the bound used when none is configured.
const DefaultMaxRounds = 3

// Generator produces or revises an answer from the conversation so far.
type Generator interface {
	Generate(ctx context.Context, turns []messages.Turn, instructions string) (messages.Turn, error)
}

// Critic critiques the latest answer. It receives the framed conversation.
type Critic interface {
	Critique(ctx context.Context, turns []messages.Turn, instructions string) (messages.Turn, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, turns []messages.Turn, instructions string) (messages.Turn, error)

func (f GeneratorFunc) Generate(ctx context.Context, turns []messages.Turn, instructions string) (messages.Turn, error) {
	return f(ctx, turns, instructions)
}

// CriticFunc adapts a function to the Critic interface.
type CriticFunc func(ctx context.Context, turns []messages.Turn, instructions string) (messages.Turn, error)

func (f CriticFunc) Critique(ctx context.Context, turns []messages.Turn, instructions string) (messages.Turn, error) {
	return f(ctx, turns, instructions)
}

// Loop drives thread.State values through the reflection state machine.
type Loop struct {
	generator            Generator
	critic               Critic
	generateInstructions string
	critiqueInstructions string
	maxRounds            int
	hook                 events.Hook
	logger               *slog.Logger
}

var (
	WithGenerateInstructions = opts.ForName[Loop, string]("generateInstructions")
	WithCritiqueInstructions = opts.ForName[Loop, string]("critiqueInstructions")
	WithMaxRounds            = opts.ForName[Loop, int]("maxRounds")
)

func WithGenerator(g Generator) opts.Option[Loop] {
	return opts.Type[Loop](func(l *Loop) error {
		l.generator = g
		return nil
	})
}

func WithCritic(c Critic) opts.Option[Loop] {
	return opts.Type[Loop](func(l *Loop) error {
		l.critic = c
		return nil
	})
}

// WithHook sets the hook that receives loop events. A nil hook is ignored.
func WithHook(h events.Hook) opts.Option[Loop] {
	return opts.Type[Loop](func(l *Loop) error {
		if h != nil {
			l.hook = h
		}
		return nil
	})
}

func WithLogger(logger *slog.Logger) opts.Option[Loop] {
	return opts.Type[Loop](func(l *Loop) error {
		if logger != nil {
			l.logger = logger
		}
		return nil
	})
}

// New creates a loop. A generator and a critic are required.
func New(options ...opts.Option[Loop]) (*Loop, error) {
	l := &Loop{
		maxRounds: DefaultMaxRounds,
		hook:      events.Noop{},
		logger:    slog.Default(),
	}
	if err := opts.Apply(l, options); err != nil {
		return nil, err
	}
	if l.generator == nil {
		return nil, ErrNoGenerator
	}
	if l.critic == nil {
		return nil, ErrNoCritic
	}
	if l.maxRounds < 0 {
		return nil, ErrNegativeRounds
	}
	l.logger = l.logger.With(slogx.LoggerName("ruminate.reflection"))
	return l, nil
}

// MaxRounds returns the configured bound.
func (l *Loop) MaxRounds() int {
	return l.maxRounds
}

// Result summarizes a finished run.
type Result struct {
	SessionID uuid.UUID
	// Rounds is the number of generate passes, failed ones included.
	Rounds int
	// Answer is the last assistant turn, nil when none survived.
	Answer messages.Turn
	Turns  []messages.Turn
}

// Run steps the state until it terminates. The context is checked before
// every step; when it is done Run returns its error and leaves the state
// where it stopped.
func (l *Loop) Run(ctx context.Context, st *thread.State) (Result, error) {
	if st.Terminated() {
		return Result{}, ErrTerminated
	}
	var passes int
	for !st.Terminated() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if st.Next() == thread.Generate {
			passes++
		}
		if _, err := l.Step(ctx, st); err != nil {
			return Result{}, err
		}
	}

	res := Result{SessionID: st.ID(), Rounds: passes, Turns: st.Turns()}
	if answer, ok := st.LastOf(messages.RoleAssistant); ok {
		res.Answer = answer
	}
	return res, nil
}

// Step runs the state's next node and returns the node that will run after
// it. Model failures are handled inside the step and do not produce an error.
func (l *Loop) Step(ctx context.Context, st *thread.State) (thread.Node, error) {
	if st.Terminated() {
		return thread.End, ErrTerminated
	}

	node := st.Next()
	l.hook.OnStep(ctx, events.Step{
		SessionID: st.ID(),
		Node:      node,
		Round:     st.Rounds(),
		Timestamp: timestamp(),
	})

	switch node {
	case thread.Generate:
		l.generate(ctx, st)
	case thread.Reflect:
		l.reflect(ctx, st)
	case thread.End:
		l.end(ctx, st)
	default:
		return node, fmt.Errorf("%w: %s", ErrUnknownNode, node)
	}
	return st.Next(), nil
}

func (l *Loop) generate(ctx context.Context, st *thread.State) {
	turn, err := l.generator.Generate(ctx, st.Turns(), l.generateInstructions)
	if err == nil && isEmpty(turn) {
		err = ErrEmptyCompletion
	}
	st.AddRounds(1)

	if err != nil {
		failure := &GenerationFailure{SessionID: st.ID(), Round: st.Rounds(), Err: err}
		l.logger.WarnContext(ctx, "generate failed", slogx.Session(st.ID()), slog.Int("round", st.Rounds()), slogx.Error(err))
		l.hook.OnFailure(ctx, events.Failure{
			SessionID: st.ID(),
			Node:      thread.Generate,
			Round:     st.Rounds(),
			Err:       failure,
			Timestamp: timestamp(),
		})
	} else {
		draft := asAssistant(turn)
		st.Append(draft)
		l.hook.OnTurn(ctx, events.TurnAdded{
			SessionID: st.ID(),
			Node:      thread.Generate,
			Round:     st.Rounds(),
			Turn:      draft,
			Timestamp: timestamp(),
		})
	}

	if st.Rounds() > l.maxRounds {
		st.SetNext(thread.End)
		return
	}
	st.SetNext(thread.Reflect)
}

func (l *Loop) reflect(ctx context.Context, st *thread.State) {
	if st.Len() == 0 {
		l.logger.WarnContext(ctx, "no turns available for reflection", slogx.Session(st.ID()))
		l.resetToDefault(ctx, st, ErrEmptyConversation)
		return
	}

	turn, err := l.critic.Critique(ctx, Frame(st.Turns()), l.critiqueInstructions)
	if err == nil && isEmpty(turn) {
		err = ErrEmptyCompletion
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "critique failed, discarding conversation",
			slogx.Session(st.ID()), slog.Int("round", st.Rounds()), slogx.Error(err))
		l.resetToDefault(ctx, st, &CritiqueFailure{SessionID: st.ID(), Round: st.Rounds(), Err: err})
		return
	}

	critique := asCritique(turn)
	st.Append(critique)
	l.hook.OnTurn(ctx, events.TurnAdded{
		SessionID: st.ID(),
		Node:      thread.Reflect,
		Round:     st.Rounds(),
		Turn:      critique,
		Timestamp: timestamp(),
	})
	st.SetNext(thread.Generate)
}

// resetToDefault puts the state back to no turns and no rounds and routes
// it to End: with nothing left to revise another generate pass would have no
// request to answer.
func (l *Loop) resetToDefault(ctx context.Context, st *thread.State, cause error) {
	round := st.Rounds()
	st.Reset()
	st.SetNext(thread.End)
	l.hook.OnFailure(ctx, events.Failure{
		SessionID: st.ID(),
		Node:      thread.Reflect,
		Round:     round,
		Err:       cause,
		Reset:     true,
		Timestamp: timestamp(),
	})
}

func (l *Loop) end(ctx context.Context, st *thread.State) {
	rounds := st.Rounds()
	correction := -rounds
	st.AddRounds(correction)
	st.Terminate()

	final, _ := st.LastOf(messages.RoleAssistant)
	l.hook.OnEnd(ctx, events.End{
		SessionID:  st.ID(),
		Rounds:     rounds,
		Correction: correction,
		Final:      final,
		Timestamp:  timestamp(),
	})
}

// Frame prepares a conversation for the critic. The first turn, the
// original request, is kept as is; every later turn is relabeled with
// messages.Swap. The input slice is not modified.
func Frame(turns []messages.Turn) []messages.Turn {
	if len(turns) == 0 {
		return nil
	}
	framed := make([]messages.Turn, len(turns))
	framed[0] = turns[0]
	for i, t := range turns[1:] {
		framed[i+1] = messages.Swap(t)
	}
	return framed
}

func isEmpty(t messages.Turn) bool {
	return t == nil || strings.TrimSpace(t.Text()) == ""
}

func asAssistant(t messages.Turn) messages.Turn {
	if a, ok := t.(messages.Assistant); ok {
		return a
	}
	return messages.NewAssistant(t.Text())
}

func asCritique(t messages.Turn) messages.Turn {
	if c, ok := t.(messages.Critique); ok {
		return c
	}
	return messages.NewCritique(t.Text())
}

func timestamp() strfmt.DateTime {
	return strfmt.DateTime(time.Now())
}
