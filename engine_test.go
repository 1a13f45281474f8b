package ruminate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/ruminate/agent"
	"github.com/casualjim/ruminate/internal/executor"
	"github.com/casualjim/ruminate/internal/mocks"
	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/patterns"
	"github.com/casualjim/ruminate/pkg/stdx"
	"github.com/casualjim/ruminate/provider"
	"github.com/casualjim/ruminate/reflection"
	"github.com/casualjim/ruminate/thread"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPattern = "engine-test"

func init() {
	stdx.Must0(patterns.Register(patterns.Pattern{
		Name:                 testPattern,
		GenerateInstructions: "generate",
		CritiqueInstructions: "critique",
		MaxRounds:            1,
	}))
}

func stream(evts ...provider.StreamEvent) <-chan provider.StreamEvent {
	ch := make(chan provider.StreamEvent, len(evts))
	for _, e := range evts {
		ch <- e
	}
	close(ch)
	return ch
}

// testAgent answers "draft-N" when generating and "fix-it" when critiquing.
// Drafts are numbered per prompt.
func testAgent(t *testing.T) *agent.Agent {
	t.Helper()
	model := mocks.NewModel(t)
	prov := mocks.NewProvider(t)
	model.EXPECT().Provider().Return(prov).Maybe()
	model.EXPECT().Name().Return("test-model").Maybe()

	var mu sync.Mutex
	drafts := map[string]int{}
	prov.EXPECT().
		ChatCompletion(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, p provider.CompletionParams) (<-chan provider.StreamEvent, error) {
			if p.Instructions == "critique" {
				return stream(provider.Response{Content: "fix-it"}), nil
			}
			mu.Lock()
			defer mu.Unlock()
			prompt := p.Turns[0].Text()
			drafts[prompt]++
			return stream(provider.Response{Content: fmt.Sprintf("draft-%d", drafts[prompt])}), nil
		}).Maybe()

	return agent.New(agent.Name(strings.ReplaceAll(t.Name(), "/", "-")), agent.Model(model))
}

func newEngine(t *testing.T, options ...opts.Option[Engine]) *Engine {
	t.Helper()
	eng, err := New(append([]opts.Option[Engine]{Agent(testAgent(t)), Pattern(testPattern)}, options...)...)
	require.NoError(t, err)
	t.Cleanup(func() { agent.Del(eng.Agent().Name()) })
	return eng
}

func shape(turns []messages.Turn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Role().String()+":"+t.Text())
	}
	return out
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		eng, err := New(Agent(testAgent(t)))
		require.NoError(t, err)
		t.Cleanup(func() { agent.Del(eng.Agent().Name()) })

		assert.Equal(t, patterns.Default, eng.Pattern().Name)
		assert.Equal(t, 3, eng.Pattern().MaxRounds)
		assert.Equal(t, 0, eng.Len())
	})

	t.Run("max rounds override", func(t *testing.T) {
		eng := newEngine(t, MaxRounds(4))
		assert.Equal(t, 4, eng.Pattern().MaxRounds)
	})

	t.Run("unknown pattern", func(t *testing.T) {
		_, err := New(Pattern("nope"))
		assert.ErrorIs(t, err, patterns.ErrUnknownPattern)
	})

	t.Run("negative rounds", func(t *testing.T) {
		_, err := New(MaxRounds(-2))
		assert.ErrorIs(t, err, reflection.ErrNegativeRounds)
	})

	t.Run("invalid parallelism", func(t *testing.T) {
		_, err := New(Parallelism(0))
		assert.Error(t, err)
	})

	t.Run("registers the agent", func(t *testing.T) {
		eng := newEngine(t)
		got, ok := agent.Get(eng.Agent().Name())
		require.True(t, ok)
		assert.Same(t, eng.Agent(), got)
	})
}

func TestEngine_Ask(t *testing.T) {
	hook := mocks.NewHook()
	eng := newEngine(t, Hook(hook))

	res, err := eng.Ask(context.Background(), "Q")
	require.NoError(t, err)

	assert.Equal(t, []string{"user:Q", "assistant:draft-1", "critique:fix-it", "assistant:draft-2"}, shape(res.Turns))
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, "draft-2", res.Answer.Text())
	assert.Equal(t, 0, eng.Len(), "terminated sessions are removed")
	assert.Len(t, hook.Ends(), 1)
}

func TestEngine_EmptyPrompt(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Ask(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestEngine_Step(t *testing.T) {
	eng := newEngine(t)
	id, err := eng.Start("Q")
	require.NoError(t, err)

	var nodes []thread.Node
	for {
		next, err := eng.Step(context.Background(), id)
		require.NoError(t, err)
		nodes = append(nodes, next)
		if next == thread.End {
			cp, err := eng.Session(id)
			require.NoError(t, err)
			if cp.Terminated {
				break
			}
		}
	}
	assert.Equal(t, []thread.Node{thread.Reflect, thread.Generate, thread.End, thread.End}, nodes)

	cp, err := eng.Session(id)
	require.NoError(t, err)
	assert.Equal(t, 0, cp.Rounds)
	assert.Len(t, cp.Turns, 4)

	_, err = eng.Step(context.Background(), id)
	assert.ErrorIs(t, err, reflection.ErrTerminated)
	_, err = eng.Run(context.Background(), id)
	assert.ErrorIs(t, err, reflection.ErrTerminated)
}

func TestEngine_UnknownSession(t *testing.T) {
	eng := newEngine(t)
	id := uuid.New()

	_, err := eng.Step(context.Background(), id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = eng.Run(context.Background(), id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = eng.Session(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, eng.Abandon(id), ErrSessionNotFound)
}

func TestEngine_Abandon(t *testing.T) {
	eng := newEngine(t)
	id, err := eng.Start("Q")
	require.NoError(t, err)
	assert.Equal(t, 1, eng.Len())

	require.NoError(t, eng.Abandon(id))
	assert.Equal(t, 0, eng.Len())
	_, err = eng.Run(context.Background(), id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEngine_Resume(t *testing.T) {
	first := newEngine(t)
	id, err := first.Start("Q")
	require.NoError(t, err)
	_, err = first.Step(context.Background(), id)
	require.NoError(t, err)

	cp, err := first.Session(id)
	require.NoError(t, err)

	second := newEngine(t)
	resumed, err := second.Resume(cp)
	require.NoError(t, err)
	assert.Equal(t, id, resumed)

	_, err = second.Resume(cp)
	assert.Error(t, err, "a session cannot be registered twice")

	res, err := second.Run(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, res.Turns, 4)
}

func TestEngine_SessionBusy(t *testing.T) {
	model := mocks.NewModel(t)
	prov := mocks.NewProvider(t)
	model.EXPECT().Provider().Return(prov).Maybe()
	model.EXPECT().Name().Return("test-model").Maybe()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	prov.EXPECT().
		ChatCompletion(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, provider.CompletionParams) (<-chan provider.StreamEvent, error) {
			once.Do(func() { close(entered) })
			<-release
			return stream(provider.Response{Content: "answer"}), nil
		})

	eng, err := New(Agent(agent.New(agent.Name("busy-agent"), agent.Model(model))), Pattern(testPattern), MaxRounds(0))
	require.NoError(t, err)
	t.Cleanup(func() { agent.Del("busy-agent") })

	id, err := eng.Start("Q")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := eng.Run(context.Background(), id)
		done <- err
	}()

	<-entered
	_, err = eng.Step(context.Background(), id)
	assert.ErrorIs(t, err, ErrSessionBusy)
	_, err = eng.Session(id)
	assert.ErrorIs(t, err, ErrSessionBusy)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestEngine_AskAll(t *testing.T) {
	eng := newEngine(t, Parallelism(2))

	results := eng.AskAll(context.Background(), "A", "", "C", "D")
	require.Len(t, results, 4)

	assert.True(t, results[1].IsError())
	assert.ErrorIs(t, results[1].Err, ErrEmptyPrompt)

	for _, i := range []int{0, 2, 3} {
		require.True(t, results[i].IsSuccess(), "result %d: %v", i, results[i].Err)
		res := results[i].Success
		assert.Len(t, res.Turns, 4)
		assert.Equal(t, "draft-2", res.Answer.Text(), "drafts are counted per session")
	}
	assert.Equal(t, 0, eng.Len())
}

type recordingExecutor struct {
	calls atomic.Int32
	cmd   executor.Command
}

func (r *recordingExecutor) Run(_ context.Context, cmd executor.Command, st *thread.State) (reflection.Result, error) {
	r.calls.Add(1)
	r.cmd = cmd
	st.Append(messages.NewAssistant("remote"))
	st.Terminate()
	return reflection.Result{SessionID: st.ID(), Rounds: 1, Answer: st.Last(), Turns: st.Turns()}, nil
}

func TestEngine_Executor(t *testing.T) {
	x := &recordingExecutor{}
	eng := newEngine(t, Executor(x), MaxRounds(2))

	res, err := eng.Ask(context.Background(), "Q")
	require.NoError(t, err)
	assert.Equal(t, "remote", res.Answer.Text())
	assert.EqualValues(t, 1, x.calls.Load())

	assert.Equal(t, eng.Agent().Name(), x.cmd.Agent)
	assert.Equal(t, "generate", x.cmd.GenerateInstructions)
	assert.Equal(t, "critique", x.cmd.CritiqueInstructions)
	assert.Equal(t, 2, x.cmd.MaxRounds)
	assert.NotNil(t, x.cmd.Hook)
}

func fixedAgent(t *testing.T, name, answer string) *agent.Agent {
	t.Helper()
	model := mocks.NewModel(t)
	prov := mocks.NewProvider(t)
	model.EXPECT().Provider().Return(prov).Maybe()
	model.EXPECT().Name().Return("test-model").Maybe()
	prov.EXPECT().
		ChatCompletion(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, provider.CompletionParams) (<-chan provider.StreamEvent, error) {
			return stream(provider.Response{Content: answer}), nil
		}).Maybe()
	return agent.New(agent.Name(name), agent.Model(model))
}

func TestEngine_AgentsWithSameName(t *testing.T) {
	const name = "shared-name"
	t.Cleanup(func() { agent.Del(name) })

	first, err := New(Agent(fixedAgent(t, name, "from-first")), Pattern(testPattern), MaxRounds(0))
	require.NoError(t, err)
	second, err := New(Agent(fixedAgent(t, name, "from-second")), Pattern(testPattern), MaxRounds(0))
	require.NoError(t, err)

	res, err := first.Ask(context.Background(), "Q")
	require.NoError(t, err)
	assert.Equal(t, "from-first", res.Answer.Text())

	res, err = second.Ask(context.Background(), "Q")
	require.NoError(t, err)
	assert.Equal(t, "from-second", res.Answer.Text())

	id, err := first.Start("Q")
	require.NoError(t, err)
	_, err = first.Step(context.Background(), id)
	require.NoError(t, err)
	cp, err := first.Session(id)
	require.NoError(t, err)
	assert.Equal(t, "from-first", cp.Turns[len(cp.Turns)-1].Text(), "Step and Run use the same agent")
}
