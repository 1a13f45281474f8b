package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/casualjim/ruminate/api"
	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/pkg/slogx"
	"github.com/casualjim/ruminate/pkg/uuidx"
	"github.com/casualjim/ruminate/provider"
	"github.com/casualjim/ruminate/provider/openai"
	"github.com/casualjim/ruminate/reflection"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
)

var (
	_ reflection.Generator = (*Agent)(nil)
	_ reflection.Critic    = (*Agent)(nil)
)

// DefaultName is the name of an agent created without the Name option.
const DefaultName = "ruminate"

// Vars are the values available to instruction templates.
type Vars map[string]any

// ChunkFunc receives streamed content together with the role of the turn
// being produced.
type ChunkFunc func(role messages.Role, chunk string)

// Agent answers and critiques through a model. The same agent can serve as
// the generator and the critic of a loop; the instructions passed by the
// loop decide which part it plays.
type Agent struct {
	name         string
	model        api.Model
	instructions string
	vars         Vars
	stream       bool
	onChunk      ChunkFunc
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.name
}

// Model returns the agent's model.
func (a *Agent) Model() api.Model {
	return a.model
}

func (a *Agent) Instructions() string {
	return a.instructions
}

// RenderInstructions renders instructions as a template over the agent's
// vars. Instructions without template actions are returned as is; empty
// instructions fall back to the agent's own.
func (a *Agent) RenderInstructions(instructions string) (string, error) {
	if strings.TrimSpace(instructions) == "" {
		instructions = a.instructions
	}
	if !strings.Contains(instructions, "{{") {
		return instructions, nil
	}
	return renderTemplate(a.name, instructions, a.vars)
}

func renderTemplate(name, templateStr string, vars Vars) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Generate implements reflection.Generator.
func (a *Agent) Generate(ctx context.Context, turns []messages.Turn, instructions string) (messages.Turn, error) {
	text, err := a.complete(ctx, messages.RoleAssistant, turns, instructions)
	if err != nil {
		return nil, err
	}
	return messages.Assistant{Content: text, Sender: a.name, Timestamp: strfmt.DateTime(time.Now())}, nil
}

// Critique implements reflection.Critic.
func (a *Agent) Critique(ctx context.Context, turns []messages.Turn, instructions string) (messages.Turn, error) {
	text, err := a.complete(ctx, messages.RoleCritique, turns, instructions)
	if err != nil {
		return nil, err
	}
	return messages.Critique{Content: text, Sender: a.name, Timestamp: strfmt.DateTime(time.Now())}, nil
}

func (a *Agent) complete(ctx context.Context, role messages.Role, turns []messages.Turn, instructions string) (string, error) {
	rendered, err := a.RenderInstructions(instructions)
	if err != nil {
		return "", fmt.Errorf("failed to render instructions for %s: %w", a.name, err)
	}

	runID := uuidx.New()
	log := slog.With(slogx.LoggerName("ruminate.agent"), slog.String("agent", a.name), slogx.Stringer("run_id", runID))

	var onChunk func(string)
	if a.onChunk != nil {
		onChunk = func(chunk string) { a.onChunk(role, chunk) }
	}

	events, err := a.model.Provider().ChatCompletion(ctx, provider.CompletionParams{
		RunID:        runID,
		Instructions: rendered,
		Turns:        turns,
		Stream:       a.stream || a.onChunk != nil,
		Model:        a.model,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start completion: %w", err)
	}

	text, err := provider.Collect(ctx, events, onChunk)
	if err != nil {
		log.DebugContext(ctx, "completion failed", slogx.Error(err))
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", reflection.ErrEmptyCompletion
	}
	log.DebugContext(ctx, "completion done", slog.String("role", role.String()), slog.Int("length", len(text)))
	return text, nil
}

var (
	Name         = opts.ForName[Agent, string]("name")
	Model        = opts.ForName[Agent, api.Model]("model")
	Instructions = opts.ForName[Agent, string]("instructions")
	Streaming    = opts.ForName[Agent, bool]("stream")
)

// WithVars adds template values, replacing earlier ones with the same key.
func WithVars(vars Vars) opts.Option[Agent] {
	return opts.Type[Agent](func(a *Agent) error {
		if a.vars == nil {
			a.vars = make(Vars, len(vars))
		}
		for k, v := range vars {
			a.vars[k] = v
		}
		return nil
	})
}

// OnChunk streams completions and hands every chunk to fn.
func OnChunk(fn ChunkFunc) opts.Option[Agent] {
	return opts.Type[Agent](func(a *Agent) error {
		a.onChunk = fn
		return nil
	})
}

// New creates an agent. It defaults to the gpt-4o-mini model.
func New(options ...opts.Option[Agent]) *Agent {
	agent := &Agent{
		name:  DefaultName,
		model: openai.GPT4oMini(),
	}
	if err := opts.Apply(agent, options); err != nil {
		panic(err)
	}
	return agent
}
