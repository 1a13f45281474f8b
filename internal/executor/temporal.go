package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/casualjim/ruminate/agent"
	"github.com/casualjim/ruminate/events"
	"github.com/casualjim/ruminate/internal/broker"
	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/pkg/slogx"
	"github.com/casualjim/ruminate/pkg/uuidx"
	"github.com/casualjim/ruminate/reflection"
	"github.com/casualjim/ruminate/thread"
	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	WorkflowName      = "ruminate.reflection"
	GenerateActivity  = "ruminate.generate"
	CritiqueActivity  = "ruminate.critique"
	PublishActivity   = "ruminate.publish"
	DefaultTaskQueue  = "ruminate"
	errTypeNoAgent    = "UnknownAgent"
	errTypeEmptyReply = "EmptyCompletion"
)

// RunCommand is the workflow input.
type RunCommand struct {
	Agent                string            `json:"agent"`
	GenerateInstructions string            `json:"generate_instructions,omitempty"`
	CritiqueInstructions string            `json:"critique_instructions,omitempty"`
	MaxRounds            int               `json:"max_rounds"`
	Publish              bool              `json:"publish,omitempty"`
	Checkpoint           thread.Checkpoint `json:"checkpoint"`
}

// RunResult is the workflow output.
type RunResult struct {
	Checkpoint thread.Checkpoint `json:"checkpoint"`
	Rounds     int               `json:"rounds"`
	Answer     messages.Envelope `json:"answer"`
}

// TurnRequest is the input of the generate and critique activities.
type TurnRequest struct {
	SessionID    uuid.UUID      `json:"session_id"`
	Round        int            `json:"round"`
	Agent        string         `json:"agent"`
	Instructions string         `json:"instructions,omitempty"`
	Turns        messages.Turns `json:"turns"`
}

// PublishRequest carries one JSON encoded event to a broker subject.
type PublishRequest struct {
	Subject string `json:"subject"`
	Event   []byte `json:"event"`
}

// Registry is the part of a Temporal worker used to register the workflow
// and its activities.
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register registers the workflow and the activities under their names.
func Register(r Registry, activities *Activities) {
	r.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	r.RegisterActivityWithOptions(activities.Generate, activity.RegisterOptions{Name: GenerateActivity})
	r.RegisterActivityWithOptions(activities.Critique, activity.RegisterOptions{Name: CritiqueActivity})
	r.RegisterActivityWithOptions(activities.PublishEvent, activity.RegisterOptions{Name: PublishActivity})
}

var (
	completionOptions = workflow.ActivityOptions{
		StartToCloseTimeout:    5 * time.Minute,
		ScheduleToStartTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        1 * time.Second,
			MaximumInterval:        10 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errTypeNoAgent, errTypeEmptyReply},
		},
	}
	publishOptions = workflow.ActivityOptions{
		StartToCloseTimeout:    10 * time.Second,
		ScheduleToStartTimeout: 5 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    100 * time.Millisecond,
			MaximumInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    5,
		},
	}
)

// Workflow runs the reflection loop for the checkpointed session. Model
// calls are activities; a failed activity is a failed generate or critique
// and is handled by the loop like any other model failure.
func Workflow(ctx workflow.Context, cmd RunCommand) (RunResult, error) {
	logger := workflow.GetLogger(ctx)
	if err := (Command{Agent: cmd.Agent, MaxRounds: cmd.MaxRounds}).validate(); err != nil {
		return RunResult{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidCommand", err)
	}

	if cmd.Checkpoint.ID == uuid.Nil {
		if err := workflow.SideEffect(ctx, func(workflow.Context) interface{} { return uuidx.New() }).Get(&cmd.Checkpoint.ID); err != nil {
			return RunResult{}, fmt.Errorf("failed to allocate session id: %w", err)
		}
	}
	st := cmd.Checkpoint.Restore()
	logger.Info("running reflection", "session", st.ID().String(), "agent", cmd.Agent, "max_rounds", cmd.MaxRounds)

	// The loop only sees a plain context. It is cancelled when an activity
	// reports that the workflow itself was cancelled.
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	actx := workflow.WithActivityOptions(ctx, completionOptions)
	call := func(name string, turns []messages.Turn, instructions string) (messages.Turn, error) {
		var out messages.Envelope
		err := workflow.ExecuteActivity(actx, name, TurnRequest{
			SessionID:    st.ID(),
			Round:        st.Rounds(),
			Agent:        cmd.Agent,
			Instructions: instructions,
			Turns:        turns,
		}).Get(actx, &out)
		if temporal.IsCanceledError(err) {
			cancel()
		}
		if err != nil {
			return nil, err
		}
		return out.Turn, nil
	}

	var hook events.Hook = events.Noop{}
	if cmd.Publish {
		hook = &workflowHook{ctx: workflow.WithActivityOptions(ctx, publishOptions), subject: broker.SessionSubject(st.ID())}
	}

	cmdForLoop := Command{
		Agent:                cmd.Agent,
		GenerateInstructions: cmd.GenerateInstructions,
		CritiqueInstructions: cmd.CritiqueInstructions,
		MaxRounds:            cmd.MaxRounds,
	}
	loop, err := cmdForLoop.loop(
		reflection.GeneratorFunc(func(_ context.Context, turns []messages.Turn, instructions string) (messages.Turn, error) {
			return call(GenerateActivity, turns, instructions)
		}),
		reflection.CriticFunc(func(_ context.Context, turns []messages.Turn, instructions string) (messages.Turn, error) {
			return call(CritiqueActivity, turns, instructions)
		}),
		reflection.WithHook(hook),
		reflection.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return RunResult{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidCommand", err)
	}

	res, err := loop.Run(runCtx, st)
	if err != nil {
		return RunResult{}, err
	}
	logger.Info("reflection finished", "session", st.ID().String(), "rounds", res.Rounds)
	return RunResult{
		Checkpoint: st.Checkpoint(),
		Rounds:     res.Rounds,
		Answer:     messages.Envelope{Turn: res.Answer},
	}, nil
}

// workflowHook forwards loop events to the publish activity. It runs inside
// the workflow, so it does no IO itself.
type workflowHook struct {
	ctx     workflow.Context
	subject string
}

func (h *workflowHook) publish(e events.Event) {
	logger := workflow.GetLogger(h.ctx)
	payload, err := events.ToJSON(e)
	if err != nil {
		logger.Warn("failed to encode event", "error", err)
		return
	}
	err = workflow.ExecuteActivity(h.ctx, PublishActivity, PublishRequest{Subject: h.subject, Event: payload}).Get(h.ctx, nil)
	if err != nil {
		logger.Warn("failed to publish event", "subject", h.subject, "error", err)
	}
}

func (h *workflowHook) OnStep(_ context.Context, e events.Step)       { h.publish(e) }
func (h *workflowHook) OnTurn(_ context.Context, e events.TurnAdded)  { h.publish(e) }
func (h *workflowHook) OnFailure(_ context.Context, e events.Failure) { h.publish(e) }
func (h *workflowHook) OnEnd(_ context.Context, e events.End)         { h.publish(e) }

// Activities perform the side effects of the workflow: model calls through
// registered agents and event publication.
type Activities struct {
	broker broker.Broker
	logger *slog.Logger
}

// NewActivities creates the activities. A nil broker makes PublishEvent a
// no-op.
func NewActivities(b broker.Broker, logger *slog.Logger) *Activities {
	return &Activities{
		broker: b,
		logger: loggerOrDefault(logger).With(slogx.LoggerName("ruminate.executor.activities")),
	}
}

func (a *Activities) Generate(ctx context.Context, req TurnRequest) (messages.Envelope, error) {
	return a.complete(ctx, req, (*agent.Agent).Generate)
}

func (a *Activities) Critique(ctx context.Context, req TurnRequest) (messages.Envelope, error) {
	return a.complete(ctx, req, (*agent.Agent).Critique)
}

type completeFunc func(*agent.Agent, context.Context, []messages.Turn, string) (messages.Turn, error)

func (a *Activities) complete(ctx context.Context, req TurnRequest, fn completeFunc) (messages.Envelope, error) {
	ag, ok := agent.Get(req.Agent)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownAgent, req.Agent)
		return messages.Envelope{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeNoAgent, err)
	}

	turn, err := fn(ag, ctx, req.Turns, req.Instructions)
	if errors.Is(err, reflection.ErrEmptyCompletion) {
		return messages.Envelope{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeEmptyReply, err)
	}
	if err != nil {
		a.logger.WarnContext(ctx, "completion failed", slogx.Session(req.SessionID), slog.Int("round", req.Round), slogx.Error(err))
		return messages.Envelope{}, err
	}
	return messages.Envelope{Turn: turn}, nil
}

// PublishEvent decodes the event and publishes it to the subject.
func (a *Activities) PublishEvent(ctx context.Context, req PublishRequest) error {
	if a.broker == nil {
		return nil
	}
	event, err := events.FromJSON(req.Event)
	if err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), "InvalidEvent", err)
	}
	return a.broker.Topic(ctx, req.Subject).Publish(ctx, event)
}

var _ Executor = (*Remote)(nil)

// Remote runs sessions as Temporal workflows.
type Remote struct {
	client    client.Client
	broker    broker.Broker
	taskQueue string
	logger    *slog.Logger
}

// NewRemote creates a remote executor. With a broker the command hook is
// subscribed to the session subject for the duration of the run; without
// one no events are delivered.
func NewRemote(c client.Client, b broker.Broker, taskQueue string, logger *slog.Logger) *Remote {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Remote{
		client:    c,
		broker:    b,
		taskQueue: taskQueue,
		logger:    loggerOrDefault(logger).With(slogx.LoggerName("ruminate.executor.temporal")),
	}
}

func (r *Remote) Run(ctx context.Context, cmd Command, st *thread.State) (reflection.Result, error) {
	if err := cmd.validate(); err != nil {
		return reflection.Result{}, err
	}
	if st.Terminated() {
		return reflection.Result{}, reflection.ErrTerminated
	}

	publish := r.broker != nil && cmd.Hook != nil
	if publish {
		sub, err := r.broker.Topic(ctx, broker.SessionSubject(st.ID())).Subscribe(ctx, cmd.Hook)
		if err != nil {
			return reflection.Result{}, fmt.Errorf("failed to subscribe to session events: %w", err)
		}
		defer sub.Unsubscribe()
	}

	run, err := r.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("ruminate-%s", st.ID()),
		TaskQueue: r.taskQueue,
		// a session that completed cannot run again, a failed one can
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}, WorkflowName, RunCommand{
		Agent:                cmd.Agent,
		GenerateInstructions: cmd.GenerateInstructions,
		CritiqueInstructions: cmd.CritiqueInstructions,
		MaxRounds:            cmd.MaxRounds,
		Publish:              publish,
		Checkpoint:           st.Checkpoint(),
	})
	if err != nil {
		return reflection.Result{}, fmt.Errorf("failed to start workflow: %w", err)
	}
	r.logger.DebugContext(ctx, "started workflow", slogx.Session(st.ID()), slog.String("workflow_id", run.GetID()), slog.String("run_id", run.GetRunID()))

	var out RunResult
	if err := run.Get(ctx, &out); err != nil {
		return reflection.Result{}, fmt.Errorf("workflow failed: %w", err)
	}

	out.Checkpoint.MergeInto(st)
	return reflection.Result{
		SessionID: st.ID(),
		Rounds:    out.Rounds,
		Answer:    out.Answer.Turn,
		Turns:     st.Turns(),
	}, nil
}
