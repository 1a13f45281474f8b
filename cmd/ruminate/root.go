package main

import (
	"fmt"
	"log/slog"

	"github.com/casualjim/ruminate/internal/config"
	"github.com/casualjim/ruminate/patterns"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type rootOptions struct {
	configFile string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ruminate",
		Short:         "Answer prompts through bounded rounds of self-critique",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := loadViper(opts.configFile, cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			lvl, _ := cfg.Level()
			setupLogging(lvl)
			if cfg.PatternsFile != "" {
				names, err := patterns.LoadFile(cfg.PatternsFile)
				if err != nil {
					return fmt.Errorf("loading patterns: %w", err)
				}
				slog.Debug("loaded patterns", slog.String("file", cfg.PatternsFile), slog.Any("names", names))
			}
			opts.cfg = cfg
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (toml, yaml or json)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("patterns-file", "", "JSON file with extra patterns, see 'ruminate patterns --schema'")
	flags.String("nats-url", "", "NATS server used to relay events of remote runs")
	flags.String("temporal-address", "", "Temporal frontend host:port")
	flags.String("task-queue", "", "Temporal task queue")

	cmd.AddCommand(newChatCmd(opts), newBatchCmd(opts), newWorkerCmd(opts), newPatternsCmd())
	return cmd
}

func loadViper(file string, cmd *cobra.Command) (*viper.Viper, error) {
	v, err := config.New(file)
	if err != nil {
		return nil, err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	return v, nil
}
