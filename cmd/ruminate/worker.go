package main

import (
	"fmt"
	"log/slog"

	"github.com/casualjim/ruminate/agent"
	"github.com/casualjim/ruminate/internal/broker"
	"github.com/casualjim/ruminate/internal/executor"
	"github.com/casualjim/ruminate/pkg/natsx"
	"github.com/casualjim/ruminate/pkg/slogx"
	"github.com/casualjim/ruminate/pkg/tprl"
	"github.com/casualjim/ruminate/provider/openai"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
)

func newWorkerCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker executing reflection workflows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			logger := slog.Default().With(slogx.LoggerName("ruminate.worker"))

			cl, err := tprl.NewClient(cfg.TemporalAddress)
			if err != nil {
				return err
			}
			defer cl.Close()

			var b broker.Broker
			if cfg.NATSURL != "" {
				conn, err := natsx.Connect(cfg.NATSURL)
				if err != nil {
					return fmt.Errorf("failed to connect to nats: %w", err)
				}
				defer conn.Close()
				b = broker.NATS(conn)
			}

			agent.Add(agent.New(agent.Name(agent.DefaultName), agent.Model(openai.Model(cfg.Model))))

			w := worker.New(cl, cfg.TaskQueue, worker.Options{})
			executor.Register(w, executor.NewActivities(b, logger))

			logger.Info("starting worker", slog.String("task_queue", cfg.TaskQueue), slog.String("model", cfg.Model))
			return w.Run(worker.InterruptCh())
		},
	}
	cmd.Flags().String("model", "", "OpenAI model name")
	return cmd
}
