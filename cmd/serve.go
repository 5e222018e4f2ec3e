package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theirongolddev/cashflow/internal/cli"
	"github.com/theirongolddev/cashflow/internal/daemon"

	"github.com/spf13/cobra"
)

var (
	flagServeAddr         string
	flagServeSchedule     string
	flagServeEventsBuffer int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the projection over HTTP, re-projecting on an interval",
	Long: "Run a foreground HTTP service. Endpoints:\n" +
		"  /healthz, /v1/status, /v1/events, /v1/stream (SSE),\n" +
		"  /v1/projection (JSON), /v1/workbook (xlsx), /v1/chart (png).\n" +
		"Projection endpoints accept start, end, days, balance, reduce and settle\n" +
		"query parameters.",
	RunE: runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running service",
	RunE:  runServeStatus,
}

func init() {
	serveCmd.PersistentFlags().StringVar(&flagServeAddr, "addr", "127.0.0.1:8797", "HTTP listen address")
	serveCmd.Flags().StringVar(&flagServeSchedule, "schedule", daemon.DefaultSchedule, "Re-projection cron schedule")
	serveCmd.Flags().IntVar(&flagServeEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := daemon.ValidSchedule(flagServeSchedule); err != nil {
		return fmt.Errorf("--schedule %q: %w", flagServeSchedule, err)
	}

	svc := daemon.New(daemon.Config{
		Load:         loadConfig,
		Overrides:    currentOverrides(cmd),
		Schedule:     flagServeSchedule,
		Addr:         flagServeAddr,
		EventsBuffer: flagServeEventsBuffer,
		Logger:       logger,
	})

	fmt.Printf("  cashflow listening on http://%s\n", flagServeAddr)
	fmt.Printf("  Re-projecting on %q from %s\n", flagServeSchedule, configPath())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServeStatus(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Address: http://%s\n", flagServeAddr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + flagServeAddr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if st.LastPollAt.IsZero() {
		fmt.Printf("  Last poll: pending\n")
	} else {
		fmt.Printf("  Last poll: %s\n", st.LastPollAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Instance: %s\n", st.InstanceID)
	fmt.Printf("  Poll count: %d\n", st.PollCount)
	fmt.Printf("  Window: %s → %s (%d days)\n", st.Summary.Start, st.Summary.End, st.Summary.Days)
	fmt.Printf("  Closing balance: %s\n", cli.FormatMoney(st.Summary.ClosingBalance))
	fmt.Printf("  Minimum balance: %s on %s\n", cli.FormatMoney(st.Summary.MinBalance), st.Summary.MinBalanceDate)
	fmt.Printf("  Critical days: %d (threshold %s)\n", st.Summary.CriticalDays, cli.FormatMoney(st.Threshold))
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}
