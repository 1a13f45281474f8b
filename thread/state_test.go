package thread

import (
	"testing"

	"github.com/casualjim/ruminate/messages"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New(messages.NewUser("Q"))
	assert.NotEqual(t, uuid.Nil, s.ID())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "Q", s.First().Text())
	assert.Equal(t, "Q", s.Last().Text())
	assert.Equal(t, 0, s.Rounds())
	assert.Equal(t, Generate, s.Next())
	assert.False(t, s.Terminated())

	empty := New(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.First())
	assert.Nil(t, empty.Last())
}

func TestState_Mutations(t *testing.T) {
	s := New(messages.NewUser("Q"))
	s.Append(messages.NewAssistant("draft-1"))
	s.Append(messages.NewCritique("fix-it"))
	s.AddRounds(2)
	s.AddRounds(-1)
	s.SetNext(Reflect)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.Rounds())
	assert.Equal(t, Reflect, s.Next())

	last, ok := s.LastOf(messages.RoleAssistant)
	require.True(t, ok)
	assert.Equal(t, "draft-1", last.Text())
	_, ok = s.LastOf(messages.RoleTool)
	assert.False(t, ok)

	turns := s.Turns()
	turns[0] = messages.NewUser("changed")
	assert.Equal(t, "Q", s.First().Text(), "Turns returns a copy")

	s.Terminate()
	assert.True(t, s.Terminated())
	assert.Equal(t, End, s.Next())

	id := s.ID()
	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Rounds())
	assert.Equal(t, id, s.ID())
}

func TestCheckpoint(t *testing.T) {
	s := New(messages.NewUser("Q"))
	s.Append(messages.NewAssistant("draft-1"))
	s.AddRounds(1)
	s.SetNext(Reflect)

	cp := s.Checkpoint()
	s.Append(messages.NewCritique("later"))
	assert.Len(t, cp.Turns, 2, "checkpoint is a snapshot")

	b, err := json.Marshal(cp)
	require.NoError(t, err)

	var decoded Checkpoint
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, cp.ID, decoded.ID)
	assert.Equal(t, 1, decoded.Rounds)
	assert.Equal(t, Reflect, decoded.Next)
	assert.False(t, decoded.Terminated)
	require.Len(t, decoded.Turns, 2)
	assert.Equal(t, messages.RoleAssistant, decoded.Turns[1].Role())

	restored := decoded.Restore()
	assert.Equal(t, cp.ID, restored.ID())
	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, Reflect, restored.Next())

	assert.NotEqual(t, uuid.Nil, Checkpoint{}.Restore().ID())
}

func TestCheckpoint_MergeInto(t *testing.T) {
	t.Run("appends new turns", func(t *testing.T) {
		s := New(messages.NewUser("Q"))
		remote := s.Checkpoint().Restore()
		remote.Append(messages.NewAssistant("draft-1"))
		remote.AddRounds(1)
		remote.Terminate()

		remote.Checkpoint().MergeInto(s)
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, 1, s.Rounds())
		assert.True(t, s.Terminated())
	})

	t.Run("takes over a reset", func(t *testing.T) {
		s := New(messages.NewUser("Q"))
		s.Append(messages.NewAssistant("draft-1"))
		remote := s.Checkpoint().Restore()
		remote.Reset()

		remote.Checkpoint().MergeInto(s)
		assert.Equal(t, 0, s.Len())
	})
}

func TestNode(t *testing.T) {
	for _, n := range []Node{Generate, Reflect, End} {
		text, err := n.MarshalText()
		require.NoError(t, err)
		var parsed Node
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, n, parsed)
	}
	assert.Equal(t, "node(9)", Node(9).String())
	_, err := Node(9).MarshalText()
	assert.Error(t, err)
	var n Node
	assert.Error(t, n.UnmarshalText([]byte("sleep")))
}
