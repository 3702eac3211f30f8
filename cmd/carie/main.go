package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mohammad-safakhou/carie/config"
	"github.com/mohammad-safakhou/carie/internal/assistant"
	"github.com/mohammad-safakhou/carie/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries the state every subcommand shares once flags are parsed.
type app struct {
	cfgPath string
	envFile string

	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "carie",
		Short:         "Household plant assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (default searches ./config and .)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before config")

	root.AddCommand(
		serveCmd(a),
		askCmd(a),
		batchCmd(a),
		replayCmd(a),
		plantsCmd(a),
		migrateCmd(a),
		tokenCmd(a),
	)
	return root
}

func (a *app) load() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Config{Level: cfg.General.LogLevel, Format: cfg.General.LogFormat, Output: os.Stderr})
	return nil
}

func (a *app) assistant(ctx context.Context, opts ...assistant.Option) (*assistant.Assistant, error) {
	return assistant.Build(ctx, a.cfg, a.logger, opts...)
}
