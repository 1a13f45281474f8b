package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/casualjim/ruminate"
	"github.com/casualjim/ruminate/agent"
	"github.com/casualjim/ruminate/internal/broker"
	"github.com/casualjim/ruminate/internal/config"
	"github.com/casualjim/ruminate/internal/executor"
	"github.com/casualjim/ruminate/pkg/natsx"
	"github.com/casualjim/ruminate/pkg/tprl"
	"github.com/casualjim/ruminate/provider/openai"
	"github.com/casualjim/ruminate/reflection"
	"github.com/fatih/color"
	"github.com/fogfish/opts"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

type chatOptions struct {
	*rootOptions
	temporal bool
	debug    bool
}

func newChatCmd(root *rootOptions) *cobra.Command {
	o := &chatOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Ask a single prompt, or start an interactive session without one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
	flags := cmd.Flags()
	flags.String("pattern", "", "reflection pattern, see 'ruminate patterns'")
	flags.Int("max-rounds", config.UsePatternRounds, "override the pattern's round bound")
	flags.String("model", "", "OpenAI model name")
	flags.Bool("stream", true, "stream model output while it is generated")
	flags.BoolVar(&o.temporal, "temporal", false, "run sessions as Temporal workflows")
	flags.BoolVar(&o.debug, "debug", false, "dump the final session state")
	return cmd
}

func (o *chatOptions) run(ctx context.Context, in io.Reader, out io.Writer, prompt string) error {
	console := newConsole(out)
	var onChunk agent.ChunkFunc
	if o.cfg.Stream && !o.temporal {
		onChunk = console.Chunk
	}
	eng, closeFn, err := newEngine(o.cfg, o.temporal, onChunk, ruminate.Hook(console))
	if err != nil {
		return err
	}
	defer closeFn()

	if prompt != "" {
		return o.ask(ctx, eng, console, prompt)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s: ", color.CyanString("user"))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "exit"):
			return nil
		}
		if err := o.ask(ctx, eng, console, input); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(out, color.RedString("error: %v", err))
		}
	}
}

func (o *chatOptions) ask(ctx context.Context, eng *ruminate.Engine, console *console, prompt string) error {
	res, err := eng.Ask(ctx, prompt)
	if err != nil {
		return err
	}
	console.Answer(res)
	if o.debug {
		pp.Fprintln(console.w, debugView(res))
	}
	return nil
}

type debugState struct {
	SessionID string
	Rounds    int
	Turns     []string
}

func debugView(res reflection.Result) debugState {
	turns := make([]string, 0, len(res.Turns))
	for _, t := range res.Turns {
		turns = append(turns, t.Role().String()+": "+t.Text())
	}
	return debugState{SessionID: res.SessionID.String(), Rounds: res.Rounds, Turns: turns}
}

// newEngine builds an engine for cfg. Sessions run on Temporal when remote is
// set or the config names a Temporal address.
func newEngine(cfg config.Config, remote bool, onChunk agent.ChunkFunc, extra ...opts.Option[ruminate.Engine]) (*ruminate.Engine, func(), error) {
	agentOpts := []opts.Option[agent.Agent]{
		agent.Name(agent.DefaultName),
		agent.Model(openai.Model(cfg.Model)),
	}
	if onChunk != nil {
		agentOpts = append(agentOpts, agent.OnChunk(onChunk))
	}

	options := []opts.Option[ruminate.Engine]{
		ruminate.Agent(agent.New(agentOpts...)),
		ruminate.Pattern(cfg.Pattern),
		ruminate.MaxRounds(cfg.MaxRounds),
	}
	closeFn := func() {}
	if remote || cfg.Remote() {
		x, closeRemote, err := remoteExecutor(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn = closeRemote
		options = append(options, ruminate.Executor(x))
	}

	eng, err := ruminate.New(append(options, extra...)...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return eng, closeFn, nil
}

// remoteExecutor connects to Temporal and, when configured, to NATS for the
// events of remote sessions.
func remoteExecutor(cfg config.Config) (executor.Executor, func(), error) {
	logger := slog.Default()
	cl, err := tprl.NewClient(cfg.TemporalAddress)
	if err != nil {
		return nil, nil, err
	}

	var b broker.Broker
	closeFn := cl.Close
	if cfg.NATSURL != "" {
		conn, err := natsx.Connect(cfg.NATSURL)
		if err != nil {
			cl.Close()
			return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		b = broker.NATS(conn)
		closeFn = func() {
			conn.Close()
			cl.Close()
		}
	}
	return executor.NewRemote(cl, b, cfg.TaskQueue, logger), closeFn, nil
}
