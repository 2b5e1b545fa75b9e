package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"doc2txt/internal/client"
	server "doc2txt/internal/http"
	"doc2txt/internal/jobs"
	"doc2txt/internal/lifecycle"
	"doc2txt/internal/render"
)

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	var (
		mode   string
		output string
		detach bool
	)
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a document and wait for its text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upload, err := client.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer upload.Close()

			term := render.NewTerminal(cmd.ErrOrStderr(), cmd.OutOrStdout(), output)
			coord := opts.app.Coordinator(term)
			defer coord.Close()

			id, err := coord.Submit(cmd.Context(), upload, mode)
			if err != nil {
				return errReported
			}
			if detach {
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}
			return waitForJob(cmd, coord, term)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(jobs.ModeFast), "processing mode passed to the service (fast|accurate)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file or directory instead of stdout")
	cmd.Flags().BoolVar(&detach, "detach", false, "print the job id and exit without polling")
	return cmd
}

func newResumeCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume polling the most recent unfinished job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			term := render.NewTerminal(cmd.ErrOrStderr(), cmd.OutOrStdout(), output)
			coord := opts.app.Coordinator(term)
			defer coord.Close()

			id, err := coord.Resume(cmd.Context())
			if err != nil {
				return err
			}
			if id == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "No active jobs")
				return nil
			}
			return waitForJob(cmd, coord, term)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file or directory instead of stdout")
	return cmd
}

// waitForJob blocks until the coordinator settles or the command is
// interrupted. An interrupted job stays in the active job set.
func waitForJob(cmd *cobra.Command, coord *lifecycle.Coordinator, term *render.Terminal) error {
	state, err := coord.Wait(cmd.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			coord.Close()
			fmt.Fprintln(cmd.ErrOrStderr(), "Interrupted; run `doc2txt resume` to continue polling")
			return errReported
		}
		return err
	}
	if state == lifecycle.StateFailed {
		return errReported
	}
	return term.Err()
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the remote status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.app.Client.CheckStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%s: %s", args[0], res.Status)
			if res.Message != "" {
				line += " (" + res.Message + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
}

func newResultCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Download the text of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := opts.app.Client.FetchResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), text)
				return err
			}
			path, err := render.SaveResult(output, text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved result to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file or directory instead of stdout")
	return cmd
}

func newCancelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [job-id]",
		Short: "Cancel a job (defaults to the most recent active job)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				latest, err := opts.app.Jobs.Latest(ctx)
				if err != nil {
					return err
				}
				if latest == "" {
					return errors.New("no active jobs to cancel")
				}
				id = latest
			}

			res, err := opts.app.Client.Cancel(ctx, id)
			// The job leaves the active set whether or not the cancel succeeded.
			if rmErr := opts.app.Jobs.Remove(ctx, id); rmErr != nil {
				opts.app.Logger.Warn("cli.session_remove_failed", "job_id", id, "error", rmErr)
			}
			if err != nil {
				return err
			}
			msg := res.Message
			if msg == "" {
				msg = string(res.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, msg)
			return nil
		},
	}
}

func newJobsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the active job set of this session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List unfinished job ids, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := opts.app.Jobs.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Drop ids the service reports as finished or unknown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord := opts.app.Coordinator(nil)
			defer coord.Close()

			removed, err := coord.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d job(s)\n", len(removed))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every id without contacting the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.app.Jobs.Clear(cmd.Context())
		},
	})
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser UI on a local port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			if host != "" {
				app.Config.Server.Host = host
			}
			if port != 0 {
				app.Config.Server.Port = port
			}
			ctx := cmd.Context()

			view := server.NewView()
			coord := app.Coordinator(view)
			defer coord.Close()

			if id, err := coord.Resume(ctx); err != nil {
				app.Logger.Warn("serve.resume_failed", "error", err)
			} else if id != "" {
				app.Logger.Info("serve.resumed", "job_id", id)
			}
			go func() {
				if _, err := coord.Sweep(ctx); err != nil && ctx.Err() == nil {
					app.Logger.Warn("serve.sweep_failed", "error", err)
				}
			}()

			srv := server.NewServer(app.Config, coord, view, app.Logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}
