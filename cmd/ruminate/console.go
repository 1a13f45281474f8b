package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/casualjim/ruminate/events"
	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/reflection"
	"github.com/casualjim/ruminate/thread"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

var roleColors = map[messages.Role]func(string, ...interface{}) string{
	messages.RoleUser:      color.CyanString,
	messages.RoleAssistant: color.MagentaString,
	messages.RoleCritique:  color.YellowString,
	messages.RoleTool:      color.BlueString,
}

func roleLabel(role messages.Role) string {
	if fn, ok := roleColors[role]; ok {
		return fn(role.String())
	}
	return role.String()
}

// console prints the progress of sessions. Streamed chunks are written as
// they arrive; turns that were not streamed are rendered as markdown once
// they are complete.
type console struct {
	mu        sync.Mutex
	w         io.Writer
	glam      *glamour.TermRenderer
	streaming bool
}

func newConsole(w io.Writer) *console {
	glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		glam = nil
	}
	return &console{w: w, glam: glam}
}

func (c *console) render(text string) string {
	if c.glam == nil {
		return text + "\n"
	}
	out, err := c.glam.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

// Chunk is the agent's chunk callback.
func (c *console) Chunk(role messages.Role, chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.streaming {
		c.streaming = true
		fmt.Fprintf(c.w, "\n%s: ", roleLabel(role))
	}
	fmt.Fprint(c.w, chunk)
}

func (c *console) OnStep(context.Context, events.Step) {}

func (c *console) OnTurn(_ context.Context, e events.TurnAdded) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streaming {
		c.streaming = false
		fmt.Fprintln(c.w)
		return
	}
	fmt.Fprintf(c.w, "\n%s (round %d):\n%s", roleLabel(e.Turn.Role()), e.Round, c.render(e.Turn.Text()))
}

func (c *console) OnFailure(_ context.Context, e events.Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streaming {
		c.streaming = false
		fmt.Fprintln(c.w)
	}
	what := "generation failed"
	if e.Node == thread.Reflect {
		what = "critique failed"
	}
	if e.Reset {
		what += ", conversation reset"
	}
	fmt.Fprintln(c.w, color.RedString("%s: %v", what, e.Err))
}

func (c *console) OnEnd(_ context.Context, e events.End) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, color.GreenString("done after %d round(s)", e.Rounds))
}

// Answer prints the final answer of a run.
func (c *console) Answer(res reflection.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Answer == nil {
		fmt.Fprintln(c.w, color.RedString("no answer survived"))
		return
	}
	fmt.Fprintf(c.w, "\n%s\n%s", color.New(color.Bold).Sprint("answer:"), c.render(strings.TrimSpace(res.Answer.Text())))
}
