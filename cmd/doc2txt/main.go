package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"doc2txt/internal/bootstrap"
	"doc2txt/internal/config"
)

// errReported marks failures the renderer has already shown.
var errReported = errors.New("reported")

type rootOptions struct {
	configPath string
	sessionID  string
	logLevel   string

	app *bootstrap.App
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "doc2txt",
		Short:         "Convert documents to text with a remote conversion service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			config.LoadEnv(cfg)
			if opts.sessionID != "" {
				cfg.Session.ID = opts.sessionID
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}

			logger := bootstrap.NewLogger(cfg.Log, cmd.ErrOrStderr())
			app, err := bootstrap.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			opts.app = app
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app != nil {
				return opts.app.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("DOC2TXT_CONFIG"), "path to config file")
	root.PersistentFlags().StringVar(&opts.sessionID, "session", "", "session id scoping the active job set")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error")

	root.AddCommand(
		newSubmitCmd(opts),
		newResumeCmd(opts),
		newStatusCmd(opts),
		newResultCmd(opts),
		newCancelCmd(opts),
		newJobsCmd(opts),
		newServeCmd(opts),
	)
	return root
}
