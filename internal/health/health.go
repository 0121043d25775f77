// SPDX-License-Identifier: MIT

// Package health provides health and readiness checks for the service.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vgrab/vgrab/internal/log"
)

// Status represents the overall health/readiness status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Checker defines the interface for readiness checks.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs registered checkers for the readiness endpoint.
type Manager struct {
	checkers []Checker
}

// NewManager creates a health check manager.
func NewManager() *Manager {
	return &Manager{}
}

// RegisterChecker adds a checker.
func (m *Manager) RegisterChecker(c Checker) {
	m.checkers = append(m.checkers, c)
}

// readinessResponse is the /readyz body.
type readinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ServeReady handles readiness probes: 200 when every checker passes,
// 503 otherwise.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := readinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
	}

	if len(m.checkers) > 0 {
		resp.Checks = make(map[string]CheckResult, len(m.checkers))
		for _, c := range m.checkers {
			result := c.Check(r.Context())
			resp.Checks[c.Name()] = result
			switch result.Status {
			case StatusUnhealthy:
				resp.Ready = false
				resp.Status = StatusUnhealthy
			case StatusDegraded:
				if resp.Status == StatusHealthy {
					resp.Status = StatusDegraded
				}
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Error().Err(err).Msg("failed to encode readiness response")
	}
}

// WritableDirChecker verifies a directory exists and accepts writes.
type WritableDirChecker struct {
	name string
	path string
}

// NewWritableDirChecker creates a checker for directory writability.
func NewWritableDirChecker(name, path string) *WritableDirChecker {
	return &WritableDirChecker{name: name, path: path}
}

func (c *WritableDirChecker) Name() string { return c.name }

func (c *WritableDirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected directory"}
	}
	probe, err := os.CreateTemp(c.path, ".readycheck-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: "not writable", Message: c.path}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

// EngineChecker verifies the extractor binary is resolvable on PATH.
type EngineChecker struct {
	binary  string
	resolve func(string) (string, error)
}

// NewEngineChecker creates a checker for the engine binary.
func NewEngineChecker(binary string, resolve func(string) (string, error)) *EngineChecker {
	return &EngineChecker{binary: binary, resolve: resolve}
}

func (c *EngineChecker) Name() string { return "engine_binary" }

func (c *EngineChecker) Check(_ context.Context) CheckResult {
	if filepath.IsAbs(c.binary) {
		if _, err := os.Stat(c.binary); err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy, Message: c.binary}
	}
	if _, err := c.resolve(c.binary); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "resolved"}
}
