// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/launchbio/internal/cache"
	"github.com/olegiv/launchbio/internal/version"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	checkTimeout    = 2 * time.Second
)

// pinger is implemented by cache backends that talk to a server.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	cache     cache.Cache
	cacheName string
	version   version.Info
	startTime time.Time
}

// NewHealthHandler creates a new health handler. backend may be nil.
func NewHealthHandler(db *sql.DB, backend cache.Cache, backendName string, info version.Info) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     backend,
		cacheName: backendName,
		version:   info,
		startTime: time.Now(),
	}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
	Stats   *cache.Stats `json:"stats,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health. The cache is a soft dependency and never
// makes the service unhealthy on its own.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())
	cacheCheck := h.checkCache(r.Context())

	status := HealthStatus{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version.Version,
		Checks: map[string]Check{
			"database": dbCheck,
			"cache":    cacheCheck,
		},
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = systemInfo()
	}

	code := http.StatusOK
	if dbCheck.Status != statusHealthy {
		status.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.checkDatabase(r.Context()).Status != statusHealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// checkDatabase verifies database connectivity. Driver errors stay in the
// log; callers only see that the check failed.
func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: statusUnhealthy, Message: "Database unreachable", Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Connected", Latency: latency.String()}
}

func (h *HealthHandler) checkCache(ctx context.Context) Check {
	if h.cache == nil {
		return Check{Status: statusHealthy, Message: "Disabled"}
	}

	check := Check{Status: statusHealthy, Message: h.cacheName}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		stats := sp.Stats()
		check.Stats = &stats
	}

	p, ok := h.cache.(pinger)
	if !ok {
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	check.Latency = time.Since(start).String()
	if err != nil {
		check.Status = "degraded"
		check.Message = h.cacheName + " unreachable"
	}
	return check
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
