package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"htbpresence/config"
	"htbpresence/gatewaypresence"
	"htbpresence/htb"
	"htbpresence/presence"
	"htbpresence/richpresence"
	"htbpresence/runner"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	verbose bool
	envFile string
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:          "htb-presence",
		Short:        "Show your active Hack The Box machine as Discord Rich Presence",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to read configuration from")

	run := RunCommand(opts)
	root.RunE = run.RunE
	root.AddCommand(run)
	root.AddCommand(StatusCommand(opts))

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func setup(opts *options) (*config.Config, *zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if opts.verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return nil, nil, err
	}

	return cfg, logger, nil
}

func RunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll HTB and mirror the active machine into Discord until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := setupTracing(cfg, logger)
			if err != nil {
				return err
			}
			defer shutdownTracing()

			htbClient := htb.NewClient(logger.Named("htb"), cfg.APIBase, cfg.HTBToken, cfg.HTTPTimeout)

			account := ""
			usr, err := htbClient.UserInfo(ctx)
			if err != nil {
				logger.Warn("failed to fetch htb account, continuing without it", zap.Error(err))
			} else {
				account = usr.Name
				logger.Info("authenticated to htb", zap.String("username", usr.Name))
			}

			client, err := newPresenceClient(cfg, logger.Named("discord"))
			if err != nil {
				return err
			}

			r := runner.Runner{
				Log:      logger.Named("runner"),
				Source:   htbClient,
				Bridge:   presence.NewBridge(logger.Named("bridge"), client, account),
				Interval: cfg.PollInterval,
			}

			logger.Info("starting htb-presence",
				zap.String("backend", cfg.Backend),
				zap.Duration("interval", cfg.PollInterval),
			)
			r.Run(ctx)
			logger.Info("stopped")

			return nil
		},
	}
}

func StatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the currently active HTB machine once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			htbClient := htb.NewClient(logger.Named("htb"), cfg.APIBase, cfg.HTBToken, cfg.HTTPTimeout)
			out := cmd.OutOrStdout()

			if usr, err := htbClient.UserInfo(cmd.Context()); err == nil {
				fmt.Fprintf(out, "account: %s\n", usr.Name)
			} else {
				logger.Warn("failed to fetch htb account", zap.Error(err))
			}

			status, err := htbClient.Poll(cmd.Context())
			if err != nil {
				return err
			}

			if !status.Active {
				fmt.Fprintln(out, "active: false")
				return nil
			}

			fmt.Fprintln(out, "active: true")
			fmt.Fprintf(out, "machine: %s\n", status.MachineName)
			if status.Type != "" {
				fmt.Fprintf(out, "type: %s\n", status.Type)
			}
			if status.StartedAt != nil {
				fmt.Fprintf(out, "started: %s (%s ago)\n",
					status.StartedAt.Format(time.RFC3339),
					presence.FormatElapsed(time.Since(*status.StartedAt)),
				)
			}
			return nil
		},
	}
}

func newPresenceClient(cfg *config.Config, logger *zap.Logger) (presence.Client, error) {
	switch cfg.Backend {
	case config.BackendGateway:
		client, err := gatewaypresence.New(logger, cfg.DiscordBotToken)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return richpresence.New(logger, cfg.ClientID, cfg.IPCTimeout), nil
	}
}
