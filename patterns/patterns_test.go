package patterns

import (
	"context"
	"testing"

	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/reflection"
	"github.com/casualjim/ruminate/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	names := Names()
	require.GreaterOrEqual(t, len(names), 3)
	assert.Equal(t, []string{"reflection", "react", "cot"}, names[:3])

	p, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, Default, p.Name)
	assert.Equal(t, 3, p.MaxRounds)

	p, err = Lookup("react")
	require.NoError(t, err)
	assert.Equal(t, 2, p.MaxRounds)
	assert.Contains(t, p.GenerateInstructions, "Final Answer:")

	p, err = Lookup("cot")
	require.NoError(t, err)
	assert.Equal(t, 1, p.MaxRounds)
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownPattern)
}

func TestRegister(t *testing.T) {
	err := Register(Pattern{Name: ""})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	err = Register(Pattern{Name: "neg", MaxRounds: -1})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	err = Register(Pattern{Name: "tmpl", GenerateInstructions: "{{.Missing}}"})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	require.NoError(t, Register(Pattern{Name: "zz-custom", MaxRounds: 0}))
	assert.Equal(t, "zz-custom", Names()[len(Names())-1])

	require.NoError(t, Register(Pattern{Name: "zz-custom", MaxRounds: 4}))
	p, err := Lookup("zz-custom")
	require.NoError(t, err)
	assert.Equal(t, 4, p.MaxRounds)
	assert.Len(t, All(), len(Names()))
}

func TestPattern_Loop(t *testing.T) {
	p, err := Lookup("react")
	require.NoError(t, err)

	generate, critique, err := p.Instructions()
	require.NoError(t, err)
	assert.Contains(t, generate, "under 80 characters")
	assert.NotContains(t, generate, "{{")

	var gens int
	gen := reflection.GeneratorFunc(func(_ context.Context, _ []messages.Turn, instructions string) (messages.Turn, error) {
		gens++
		assert.Equal(t, generate, instructions)
		return messages.NewAssistant("a"), nil
	})
	critic := reflection.CriticFunc(func(_ context.Context, _ []messages.Turn, instructions string) (messages.Turn, error) {
		assert.Equal(t, critique, instructions)
		return messages.NewCritique("c"), nil
	})

	loop, err := p.Loop(gen, critic)
	require.NoError(t, err)
	assert.Equal(t, 2, loop.MaxRounds())

	_, err = loop.Run(context.Background(), thread.New(messages.NewUser("Q")))
	require.NoError(t, err)
	assert.Equal(t, 3, gens)

	loop, err = p.Loop(gen, critic, reflection.WithMaxRounds(0))
	require.NoError(t, err)
	assert.Equal(t, 0, loop.MaxRounds())
}
