package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/casualjim/ruminate"
	"github.com/casualjim/ruminate/api"
	"github.com/casualjim/ruminate/internal/config"
	"github.com/casualjim/ruminate/reflection"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type batchOptions struct {
	*rootOptions
	temporal    bool
	parallelism int
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	o := &batchOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Answer one prompt per line, read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			prompts, err := readPrompts(in)
			if err != nil {
				return err
			}
			return o.run(cmd.Context(), cmd.OutOrStdout(), prompts)
		},
	}
	flags := cmd.Flags()
	flags.String("pattern", "", "reflection pattern, see 'ruminate patterns'")
	flags.Int("max-rounds", config.UsePatternRounds, "override the pattern's round bound")
	flags.String("model", "", "OpenAI model name")
	flags.BoolVar(&o.temporal, "temporal", false, "run sessions as Temporal workflows")
	flags.IntVarP(&o.parallelism, "parallelism", "p", 4, "sessions answered at once")
	return cmd
}

// readPrompts returns the non-blank lines of r.
func readPrompts(r io.Reader) ([]string, error) {
	var prompts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			prompts = append(prompts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading prompts: %w", err)
	}
	return prompts, nil
}

func (o *batchOptions) run(ctx context.Context, out io.Writer, prompts []string) error {
	if len(prompts) == 0 {
		return fmt.Errorf("no prompts to answer")
	}
	eng, closeFn, err := newEngine(o.cfg, o.temporal, nil, ruminate.Parallelism(o.parallelism))
	if err != nil {
		return err
	}
	defer closeFn()

	return printBatch(newConsole(out), prompts, eng.AskAll(ctx, prompts...))
}

// printBatch prints every prompt with its answer, in prompt order. It returns
// an error when any prompt failed.
func printBatch(c *console, prompts []string, results []api.RunResult[reflection.Result]) error {
	var failed int
	for i, r := range results {
		fmt.Fprintf(c.w, "%s %s\n", color.CyanString("[%d]", i+1), prompts[i])
		res, err := r.Get()
		if err != nil {
			failed++
			fmt.Fprintln(c.w, color.RedString("error: %v", err))
			continue
		}
		c.Answer(res)
		fmt.Fprintln(c.w)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d prompts failed", failed, len(prompts))
	}
	return nil
}
