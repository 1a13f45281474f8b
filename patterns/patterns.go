package patterns

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/casualjim/ruminate/pkg/stdx"
	"github.com/casualjim/ruminate/reflection"
	"github.com/fogfish/opts"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrUnknownPattern = errors.New("unknown pattern")
	ErrInvalidPattern = errors.New("invalid pattern")
)

// Default is the pattern used when none is named.
const Default = "reflection"

type Pattern struct {
	Name                 string `json:"name" jsonschema:"required,minLength=1"`
	Description          string `json:"description,omitempty"`
	GenerateInstructions string `json:"generate_instructions" jsonschema:"description=system prompt of the generate step; may use text/template actions"`
	CritiqueInstructions string `json:"critique_instructions" jsonschema:"description=system prompt of the critique step; may use text/template actions"`
	MaxRounds            int    `json:"max_rounds" jsonschema:"minimum=0"`

	// Vars fill the template actions in the instructions.
	Vars map[string]any `json:"vars,omitempty"`
}

func (p Pattern) validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidPattern)
	case p.MaxRounds < 0:
		return fmt.Errorf("%w: %s: max rounds must not be negative", ErrInvalidPattern, p.Name)
	}
	return nil
}

// Instructions returns the generate and critique instructions with Vars
// applied.
func (p Pattern) Instructions() (generate, critique string, err error) {
	if generate, err = render(p.Name+".generate", p.GenerateInstructions, p.Vars); err != nil {
		return "", "", err
	}
	if critique, err = render(p.Name+".critique", p.CritiqueInstructions, p.Vars); err != nil {
		return "", "", err
	}
	return generate, critique, nil
}

func render(name, text string, vars map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidPattern, name, err)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidPattern, name, err)
	}
	return buf.String(), nil
}

// Loop builds a reflection loop for the pattern. Extra options are applied
// after the pattern's own, so they can override its bound or instructions.
func (p Pattern) Loop(gen reflection.Generator, critic reflection.Critic, extra ...opts.Option[reflection.Loop]) (*reflection.Loop, error) {
	generate, critique, err := p.Instructions()
	if err != nil {
		return nil, err
	}
	options := []opts.Option[reflection.Loop]{
		reflection.WithGenerator(gen),
		reflection.WithCritic(critic),
		reflection.WithGenerateInstructions(generate),
		reflection.WithCritiqueInstructions(critique),
		reflection.WithMaxRounds(p.MaxRounds),
	}
	return reflection.New(append(options, extra...)...)
}

var (
	mu       sync.RWMutex
	registry = orderedmap.New[string, Pattern]()
)

func init() {
	for _, p := range []Pattern{
		{
			Name:                 "reflection",
			Description:          "Answer, critique and revise",
			GenerateInstructions: reflectionGenerate,
			CritiqueInstructions: reflectionCritique,
			MaxRounds:            3,
		},
		{
			Name:                 "react",
			Description:          "ReAct Thought/Action reasoning refined by critique",
			GenerateInstructions: reactGenerate,
			CritiqueInstructions: reactCritique,
			MaxRounds:            2,
			Vars:                 map[string]any{"LineWidth": 80},
		},
		{
			Name:                 "cot",
			Description:          "Write a chain-of-thought prompt and let the critic apply it",
			GenerateInstructions: cotGenerate,
			CritiqueInstructions: cotCritique,
			MaxRounds:            1,
		},
	} {
		stdx.Must0(Register(p))
	}
}

// Register adds a pattern, replacing any pattern with the same name while
// keeping its position.
func Register(p Pattern) error {
	if err := p.validate(); err != nil {
		return err
	}
	if _, _, err := p.Instructions(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	registry.Set(p.Name, p)
	return nil
}

// Lookup returns the named pattern. An empty name selects Default.
func Lookup(name string) (Pattern, error) {
	if strings.TrimSpace(name) == "" {
		name = Default
	}
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry.Get(name)
	if !ok {
		return Pattern{}, fmt.Errorf("%w: %q", ErrUnknownPattern, name)
	}
	return p, nil
}

// Names returns the pattern names in registration order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, registry.Len())
	for pair := registry.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// All returns the patterns in registration order.
func All() []Pattern {
	mu.RLock()
	defer mu.RUnlock()
	all := make([]Pattern, 0, registry.Len())
	for pair := registry.Oldest(); pair != nil; pair = pair.Next() {
		all = append(all, pair.Value)
	}
	return all
}
