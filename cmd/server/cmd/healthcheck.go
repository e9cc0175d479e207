package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type healthcheckOptions struct {
	url     string
	ready   bool
	timeout time.Duration
}

func newHealthcheckCommand() *cobra.Command {
	opts := &healthcheckOptions{}
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /healthz endpoint, or /readyz
with --ready.

This command is used by container HEALTHCHECK directives. It exits with
code 0 if the server is healthy and non-zero otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := healthcheckURL(opts.url, opts.ready)
			result := performHealthCheck(cmd.Context(), url, opts.timeout)
			out := cmd.OutOrStdout()
			if result.Error != "" {
				fmt.Fprintf(out, "%s: %s\n", url, result.Error)
			} else {
				fmt.Fprintf(out, "%s: %s (HTTP %d, %dms)\n", url, result.Status, result.StatusCode, result.LatencyMs)
			}
			if !result.IsHealthy {
				return errors.New("server is unhealthy")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/healthz)")
	cmd.Flags().BoolVar(&opts.ready, "ready", false, "check readiness (/readyz) instead of liveness")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

// HealthResponse is the part of the /healthz and /readyz body the check reads.
type HealthResponse struct {
	Status string `json:"status"`
}

type healthResult struct {
	Status     string
	StatusCode int
	IsHealthy  bool
	LatencyMs  int64
	Error      string
}

func healthcheckURL(explicit string, ready bool) string {
	if explicit != "" {
		return explicit
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	path := "/healthz"
	if ready {
		path = "/readyz"
	}
	return fmt.Sprintf("http://localhost:%s%s", port, path)
}

// performHealthCheck is healthy only for a 200 whose status is "ok" or
// "ready".
func performHealthCheck(ctx context.Context, url string, timeout time.Duration) healthResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return healthResult{Error: fmt.Sprintf("create request: %v", err)}
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return healthResult{LatencyMs: latency, Error: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	result := healthResult{StatusCode: resp.StatusCode, LatencyMs: latency}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Error = fmt.Sprintf("parse response: %v", err)
		return result
	}
	result.Status = body.Status
	result.IsHealthy = resp.StatusCode == http.StatusOK && (body.Status == "ok" || body.Status == "ready")
	return result
}
