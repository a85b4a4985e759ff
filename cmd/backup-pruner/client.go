package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shyim/backup-pruner/internal/api"
	"github.com/shyim/backup-pruner/internal/report"
	"github.com/spf13/cobra"
)

var triggerDryRun bool

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Run the daemon's prune immediately",
	Long:  "Ask the running daemon to prune now, by communicating over its Unix socket.",
	Args:  cobra.NoArgs,
	RunE:  runTrigger,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the daemon",
	Long:  "Show the outcome of the daemon's last prune and when the next one is scheduled.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	triggerCmd.Flags().BoolVarP(&triggerDryRun, "dry-run", "d", false, "Compute and report decisions without deleting anything")
}

func createSocketClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
			},
		},
	}
}

func runTrigger(cmd *cobra.Command, args []string) error {
	client := createSocketClient()

	url := fmt.Sprintf("http://localhost/prune?dry-run=%t", triggerDryRun)
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon at %s: %w", socketPath, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var result api.PruneResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("prune failed: %s", result.Error)
	}

	out := cmd.OutOrStdout()
	if err := report.Text(out, result.Groups, report.IsTerminal(out)); err != nil {
		return err
	}
	fmt.Fprintln(out, result.Message)

	if result.Failed > 0 && cfg.FailOnError {
		return fmt.Errorf("%d backups could not be deleted", result.Failed)
	}

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := createSocketClient()

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, "http://localhost/status", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon at %s: %w", socketPath, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var result api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.Success || result.Status == nil {
		return fmt.Errorf("failed to get status: %s", result.Error)
	}

	status := result.Status
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Running:\t%t\n", status.Running)
	_, _ = fmt.Fprintf(w, "Runs:\t%d\n", status.Runs)
	if !status.LastRun.IsZero() {
		_, _ = fmt.Fprintf(w, "Last run:\t%s (%s, took %s)\n",
			status.LastRun.Format("2006-01-02 15:04:05"),
			humanize.Time(status.LastRun),
			status.LastDuration.Round(time.Millisecond))
		_, _ = fmt.Fprintf(w, "Dry run:\t%t\n", status.LastDryRun)
		_, _ = fmt.Fprintf(w, "Failed deletions:\t%d\n", status.Failed)
	}
	if status.LastError != "" {
		_, _ = fmt.Fprintf(w, "Last error:\t%s\n", status.LastError)
	}
	if !result.NextRun.IsZero() {
		_, _ = fmt.Fprintf(w, "Next run:\t%s (%s)\n", result.NextRun.Format("2006-01-02 15:04:05"), humanize.Time(result.NextRun))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(status.Groups) > 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
		return report.Text(cmd.OutOrStdout(), status.Groups, report.IsTerminal(cmd.OutOrStdout()))
	}

	return nil
}
