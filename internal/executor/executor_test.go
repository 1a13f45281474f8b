package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/ruminate/agent"
	"github.com/casualjim/ruminate/events"
	"github.com/casualjim/ruminate/internal/broker"
	"github.com/casualjim/ruminate/internal/mocks"
	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/provider"
	"github.com/casualjim/ruminate/reflection"
	"github.com/casualjim/ruminate/thread"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/client"
	temporalmocks "go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func stream(evts ...provider.StreamEvent) <-chan provider.StreamEvent {
	ch := make(chan provider.StreamEvent, len(evts))
	for _, e := range evts {
		ch <- e
	}
	close(ch)
	return ch
}

// registerAgent registers an agent answering "draft-N" to generate
// instructions and "fix-it" to critique instructions.
func registerAgent(t *testing.T) string {
	t.Helper()
	model := mocks.NewModel(t)
	prov := mocks.NewProvider(t)
	model.EXPECT().Provider().Return(prov).Maybe()
	model.EXPECT().Name().Return("test-model").Maybe()

	var mu sync.Mutex
	drafts := 0
	prov.EXPECT().
		ChatCompletion(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, p provider.CompletionParams) (<-chan provider.StreamEvent, error) {
			if p.Instructions == "critique" {
				return stream(provider.Response{Content: "fix-it"}), nil
			}
			mu.Lock()
			defer mu.Unlock()
			drafts++
			return stream(provider.Response{Content: fmt.Sprintf("draft-%d", drafts)}), nil
		}).Maybe()

	name := strings.ReplaceAll(t.Name(), "/", "-")
	agent.Add(agent.New(agent.Name(name), agent.Model(model)))
	t.Cleanup(func() { agent.Del(name) })
	return name
}

func shape(turns []messages.Turn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Role().String()+":"+t.Text())
	}
	return out
}

func TestLocal_Run(t *testing.T) {
	name := registerAgent(t)
	hook := mocks.NewHook()
	st := thread.New(messages.NewUser("Q"))

	res, err := NewLocal(nil).Run(context.Background(), Command{
		Agent:                name,
		GenerateInstructions: "generate",
		CritiqueInstructions: "critique",
		MaxRounds:            1,
		Hook:                 hook,
	}, st)
	require.NoError(t, err)

	assert.Equal(t, []string{"user:Q", "assistant:draft-1", "critique:fix-it", "assistant:draft-2"}, shape(res.Turns))
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, "draft-2", res.Answer.Text())
	assert.True(t, st.Terminated())
	assert.Len(t, hook.Ends(), 1)
}

func TestLocal_PrefersOwnAgents(t *testing.T) {
	name := registerAgent(t)

	model := mocks.NewModel(t)
	prov := mocks.NewProvider(t)
	model.EXPECT().Provider().Return(prov).Maybe()
	model.EXPECT().Name().Return("test-model").Maybe()
	prov.EXPECT().
		ChatCompletion(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, provider.CompletionParams) (<-chan provider.StreamEvent, error) {
			return stream(provider.Response{Content: "own"}), nil
		})
	own := agent.New(agent.Name(name), agent.Model(model))

	res, err := NewLocal(nil, own).Run(context.Background(), Command{Agent: name, MaxRounds: 0}, thread.New(messages.NewUser("Q")))
	require.NoError(t, err)
	assert.Equal(t, "own", res.Answer.Text())

	registered, ok := agent.Get(name)
	require.True(t, ok)
	assert.NotSame(t, own, registered)
}

func TestLocal_Errors(t *testing.T) {
	st := thread.New(messages.NewUser("Q"))

	t.Run("unknown agent", func(t *testing.T) {
		_, err := NewLocal(nil).Run(context.Background(), Command{Agent: "nobody"}, st)
		assert.ErrorIs(t, err, ErrUnknownAgent)
	})

	t.Run("missing agent", func(t *testing.T) {
		_, err := NewLocal(nil).Run(context.Background(), Command{}, st)
		assert.ErrorContains(t, err, "agent is required")
	})

	t.Run("negative rounds", func(t *testing.T) {
		_, err := NewLocal(nil).Run(context.Background(), Command{Agent: "x", MaxRounds: -1}, st)
		assert.ErrorIs(t, err, reflection.ErrNegativeRounds)
	})
}

type WorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
}

func TestWorkflow(t *testing.T) {
	suite.Run(t, new(WorkflowTestSuite))
}

func (s *WorkflowTestSuite) command(name string, maxRounds int) RunCommand {
	return RunCommand{
		Agent:                name,
		GenerateInstructions: "generate",
		CritiqueInstructions: "critique",
		MaxRounds:            maxRounds,
		Checkpoint:           thread.New(messages.NewUser("Q")).Checkpoint(),
	}
}

func (s *WorkflowTestSuite) TestRunsActivities() {
	name := registerAgent(s.T())
	env := s.NewTestWorkflowEnvironment()
	Register(env, NewActivities(nil, nil))

	cmd := s.command(name, 1)
	env.ExecuteWorkflow(WorkflowName, cmd)
	s.Require().True(env.IsWorkflowCompleted())
	s.Require().NoError(env.GetWorkflowError())

	var res RunResult
	s.Require().NoError(env.GetWorkflowResult(&res))
	s.Equal(cmd.Checkpoint.ID, res.Checkpoint.ID)
	s.Equal([]string{"user:Q", "assistant:draft-1", "critique:fix-it", "assistant:draft-2"}, shape(res.Checkpoint.Turns))
	s.Equal(2, res.Rounds)
	s.Equal(0, res.Checkpoint.Rounds)
	s.True(res.Checkpoint.Terminated)
	s.Require().NotNil(res.Answer.Turn)
	s.Equal("draft-2", res.Answer.Turn.Text())
}

func (s *WorkflowTestSuite) TestGenerateFailuresStillTerminate() {
	env := s.NewTestWorkflowEnvironment()
	Register(env, NewActivities(nil, nil))

	var generates, critiques int
	env.OnActivity(GenerateActivity, mock.Anything, mock.Anything).
		Return(func(context.Context, TurnRequest) (messages.Envelope, error) {
			generates++
			return messages.Envelope{}, temporal.NewNonRetryableApplicationError("boom", "Test", nil)
		})
	env.OnActivity(CritiqueActivity, mock.Anything, mock.Anything).
		Return(func(context.Context, TurnRequest) (messages.Envelope, error) {
			critiques++
			return messages.Envelope{Turn: messages.NewCritique("fix-it")}, nil
		})

	env.ExecuteWorkflow(WorkflowName, s.command("anyone", 2))
	s.Require().True(env.IsWorkflowCompleted())
	s.Require().NoError(env.GetWorkflowError())

	var res RunResult
	s.Require().NoError(env.GetWorkflowResult(&res))
	s.Equal(3, generates)
	s.Equal(2, critiques)
	s.Equal(3, res.Rounds)
	s.Equal([]string{"user:Q", "critique:fix-it", "critique:fix-it"}, shape(res.Checkpoint.Turns))
	s.True(res.Checkpoint.Terminated)
	s.Nil(res.Answer.Turn)
}

func (s *WorkflowTestSuite) TestCritiqueFailureResets() {
	env := s.NewTestWorkflowEnvironment()
	Register(env, NewActivities(nil, nil))

	env.OnActivity(GenerateActivity, mock.Anything, mock.Anything).
		Return(messages.Envelope{Turn: messages.NewAssistant("draft")}, nil)
	env.OnActivity(CritiqueActivity, mock.Anything, mock.Anything).
		Return(messages.Envelope{}, temporal.NewNonRetryableApplicationError("no critique", "Test", nil))

	env.ExecuteWorkflow(WorkflowName, s.command("anyone", 3))
	s.Require().NoError(env.GetWorkflowError())

	var res RunResult
	s.Require().NoError(env.GetWorkflowResult(&res))
	s.Empty(res.Checkpoint.Turns)
	s.True(res.Checkpoint.Terminated)
}

func (s *WorkflowTestSuite) TestAllocatesSessionID() {
	name := registerAgent(s.T())
	env := s.NewTestWorkflowEnvironment()
	Register(env, NewActivities(nil, nil))

	cmd := s.command(name, 0)
	cmd.Checkpoint.ID = uuid.Nil
	env.ExecuteWorkflow(WorkflowName, cmd)
	s.Require().NoError(env.GetWorkflowError())

	var res RunResult
	s.Require().NoError(env.GetWorkflowResult(&res))
	s.NotEqual(cmd.Checkpoint.ID, res.Checkpoint.ID)
}

func (s *WorkflowTestSuite) TestRejectsInvalidCommand() {
	env := s.NewTestWorkflowEnvironment()
	Register(env, NewActivities(nil, nil))

	env.ExecuteWorkflow(WorkflowName, s.command("", 1))
	s.Require().True(env.IsWorkflowCompleted())
	s.Require().Error(env.GetWorkflowError())
}

func (s *WorkflowTestSuite) TestPublishesEvents() {
	name := registerAgent(s.T())
	b := broker.Local()
	env := s.NewTestWorkflowEnvironment()
	Register(env, NewActivities(b, nil))

	cmd := s.command(name, 1)
	cmd.Publish = true

	hook := mocks.NewHook()
	sub, err := b.Topic(context.Background(), broker.SessionSubject(cmd.Checkpoint.ID)).Subscribe(context.Background(), hook)
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	env.ExecuteWorkflow(WorkflowName, cmd)
	s.Require().NoError(env.GetWorkflowError())

	s.Eventually(func() bool { return len(hook.Ends()) == 1 }, time.Second, 10*time.Millisecond)
	turns := mocks.Only[events.TurnAdded](hook)
	s.Len(turns, 3)
	s.Equal(cmd.Checkpoint.ID, hook.Ends()[0].SessionID)
}

func TestActivities(t *testing.T) {
	t.Run("unknown agent is not retryable", func(t *testing.T) {
		_, err := NewActivities(nil, nil).Generate(context.Background(), TurnRequest{Agent: "nobody"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownAgent)

		var appErr *temporal.ApplicationError
		require.True(t, errors.As(err, &appErr))
		assert.True(t, appErr.NonRetryable())
		assert.Equal(t, errTypeNoAgent, appErr.Type())
	})

	t.Run("generate returns an assistant turn", func(t *testing.T) {
		name := registerAgent(t)
		out, err := NewActivities(nil, nil).Generate(context.Background(), TurnRequest{
			Agent:        name,
			Instructions: "generate",
			Turns:        messages.Turns{messages.NewUser("Q")},
		})
		require.NoError(t, err)
		assert.Equal(t, messages.RoleAssistant, out.Turn.Role())
		assert.Equal(t, "draft-1", out.Turn.Text())
	})

	t.Run("critique returns a critique turn", func(t *testing.T) {
		name := registerAgent(t)
		out, err := NewActivities(nil, nil).Critique(context.Background(), TurnRequest{
			Agent:        name,
			Instructions: "critique",
			Turns:        messages.Turns{messages.NewUser("Q")},
		})
		require.NoError(t, err)
		assert.Equal(t, messages.RoleCritique, out.Turn.Role())
		assert.Equal(t, "fix-it", out.Turn.Text())
	})

	t.Run("publish without broker", func(t *testing.T) {
		assert.NoError(t, NewActivities(nil, nil).PublishEvent(context.Background(), PublishRequest{Subject: "x", Event: []byte(`{}`)}))
	})

	t.Run("publish rejects bad payload", func(t *testing.T) {
		err := NewActivities(broker.Local(), nil).PublishEvent(context.Background(), PublishRequest{Subject: "x", Event: []byte(`{}`)})
		assert.Error(t, err)
	})
}

func TestRemote_Run(t *testing.T) {
	cl := temporalmocks.NewClient(t)
	run := temporalmocks.NewWorkflowRun(t)
	b := broker.Local()
	hook := mocks.NewHook()
	st := thread.New(messages.NewUser("Q"))

	cl.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.TaskQueue == DefaultTaskQueue && strings.HasSuffix(o.ID, st.ID().String())
	}), WorkflowName, mock.MatchedBy(func(cmd RunCommand) bool {
		return cmd.Agent == "remote-agent" && cmd.MaxRounds == 1 && cmd.Publish && cmd.Checkpoint.ID == st.ID()
	})).Return(run, nil)
	run.On("GetID").Return("ruminate-" + st.ID().String()).Maybe()
	run.On("GetRunID").Return("run").Maybe()
	run.On("Get", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			// what the workflow would have published and returned
			_ = b.Topic(context.Background(), broker.SessionSubject(st.ID())).Publish(context.Background(), events.End{SessionID: st.ID(), Rounds: 2})

			done := st.Checkpoint()
			done.Turns = append(done.Turns, messages.NewAssistant("draft-1"), messages.NewCritique("fix-it"), messages.NewAssistant("draft-2"))
			done.Terminated = true
			done.Next = thread.End
			*args.Get(1).(*RunResult) = RunResult{Checkpoint: done, Rounds: 2, Answer: messages.Envelope{Turn: messages.NewAssistant("draft-2")}}
		}).
		Return(nil)

	res, err := NewRemote(cl, b, "", nil).Run(context.Background(), Command{Agent: "remote-agent", MaxRounds: 1, Hook: hook}, st)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, "draft-2", res.Answer.Text())
	assert.Equal(t, []string{"user:Q", "assistant:draft-1", "critique:fix-it", "assistant:draft-2"}, shape(st.Turns()))
	assert.True(t, st.Terminated())
	assert.Eventually(t, func() bool { return len(hook.Ends()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestRemote_Errors(t *testing.T) {
	t.Run("terminated session", func(t *testing.T) {
		st := thread.New(messages.NewUser("Q"))
		st.Terminate()
		_, err := NewRemote(temporalmocks.NewClient(t), nil, "", nil).Run(context.Background(), Command{Agent: "a"}, st)
		assert.ErrorIs(t, err, reflection.ErrTerminated)
	})

	t.Run("start failure", func(t *testing.T) {
		cl := temporalmocks.NewClient(t)
		cl.On("ExecuteWorkflow", mock.Anything, mock.Anything, WorkflowName, mock.Anything).Return(nil, errors.New("unavailable"))

		_, err := NewRemote(cl, nil, "queue", nil).Run(context.Background(), Command{Agent: "a"}, thread.New(messages.NewUser("Q")))
		assert.ErrorContains(t, err, "failed to start workflow: unavailable")
	})

	t.Run("workflow failure keeps the state", func(t *testing.T) {
		cl := temporalmocks.NewClient(t)
		run := temporalmocks.NewWorkflowRun(t)
		cl.On("ExecuteWorkflow", mock.Anything, mock.Anything, WorkflowName, mock.Anything).Return(run, nil)
		run.On("GetID").Return("id").Maybe()
		run.On("GetRunID").Return("run").Maybe()
		run.On("Get", mock.Anything, mock.Anything).Return(errors.New("timed out"))

		st := thread.New(messages.NewUser("Q"))
		_, err := NewRemote(cl, nil, "queue", nil).Run(context.Background(), Command{Agent: "a"}, st)
		assert.ErrorContains(t, err, "workflow failed")
		assert.Equal(t, 1, st.Len())
		assert.False(t, st.Terminated())
	})
}
