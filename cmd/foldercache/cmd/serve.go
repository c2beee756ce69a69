package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesm/foldercache/internal/api"
	"github.com/wesm/foldercache/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run foldercache as a daemon with the HTTP API",
	Long: `Run foldercache as a long-running daemon.

The daemon runs in the foreground and performs:
  - HTTP API server on configured port (default: 8080)
  - Scheduled inbox ingest when [ingest] schedule is set

Configure the schedule in config.toml:
  [ingest]
  schedule = "*/5 * * * *"   # every 5 minutes (cron format)

Cron format: minute hour day-of-month month day-of-week
  Examples:
    */5 * * * *   = Every 5 minutes
    0 2 * * *     = 2:00 AM daily
    0 8,18 * * *  = 8 AM and 6 PM daily

Use Ctrl+C to stop the daemon gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := MustBeLocal("serve"); err != nil {
		return err
	}
	// Validate security posture before doing any work
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	sched := scheduler.New(newJobFunc(rt, cfg.InboxDir())).WithLogger(logger)
	count, errs := sched.AddJobsFromConfig(cfg)
	for _, err := range errs {
		logger.Error("failed to schedule job", "error", err)
	}
	sched.Start()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	apiServer := api.NewServer(cfg, rt.engine, rt.cache, sched, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	out := cmd.OutOrStdout()
	bindAddr := cfg.Server.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	fmt.Fprintf(out, "foldercache daemon started\n")
	fmt.Fprintf(out, "  API server: http://%s\n", net.JoinHostPort(bindAddr, strconv.Itoa(cfg.Server.APIPort)))
	fmt.Fprintf(out, "  Backend: %s\n", cfg.Data.Backend)
	fmt.Fprintf(out, "  Scheduled jobs: %d\n", count)
	for _, status := range sched.Status() {
		fmt.Fprintf(out, "    %s: next run at %s\n", status.Name, status.NextRun.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		fmt.Fprintln(out, "\nShutting down...")
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		runErr = fmt.Errorf("api server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	fmt.Fprintln(out, "Waiting for running jobs to complete...")
	select {
	case <-sched.Stop().Done():
		fmt.Fprintln(out, "Shutdown complete.")
	case <-time.After(30 * time.Second):
		fmt.Fprintln(out, "Shutdown timed out after 30 seconds.")
	}

	return runErr
}
