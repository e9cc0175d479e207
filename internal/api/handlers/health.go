package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is the readiness dependency, normally the postgres repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	GitCommit string                 `json:"git_commit,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type HealthChecker struct {
	db        Pinger
	version   string
	gitCommit string
	timeout   time.Duration
}

func NewHealthChecker(db Pinger, version, gitCommit string) *HealthChecker {
	return &HealthChecker{db: db, version: version, gitCommit: gitCommit, timeout: 2 * time.Second}
}

// Healthz reports liveness only. It never touches the database.
func (h *HealthChecker) Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, HealthCheck{
			Status:    "ok",
			Version:   h.version,
			GitCommit: h.gitCommit,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

// Readyz reports whether the database answers within the check timeout.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			writeHealth(w, http.StatusServiceUnavailable, HealthCheck{Status: "shutting_down", Timestamp: time.Now().UTC().Format(time.RFC3339)})
			return
		default:
		}

		check := h.checkDatabase(r.Context())
		status, code := "ready", http.StatusOK
		if check.Status != "pass" {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		writeHealth(w, code, HealthCheck{
			Status:    status,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    map[string]CheckResult{"database": check},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "database not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "database ping failed"
		if ctx.Err() == context.DeadlineExceeded {
			message = "database ping timed out"
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency}
	}
	return CheckResult{Status: "pass", LatencyMs: latency}
}

func writeHealth(w http.ResponseWriter, status int, body HealthCheck) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
