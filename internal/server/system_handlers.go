package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	serviceName = "Fintech Intelligence Platform API"
	version     = "0.1.0"
)

// Pinger is a cheap liveness probe, satisfied by *database.DB
type Pinger interface {
	QuickCheck(ctx context.Context) error
}

// SystemHandlers serves the banner and health endpoints
type SystemHandlers struct {
	db    Pinger
	now   func() time.Time
	stats func() (cpuPercent, memPercent float64)
	log   zerolog.Logger
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(db Pinger, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		db:  db,
		now: time.Now,
		log: log.With().Str("module", "system_handlers").Logger(),
	}
	h.stats = h.hostStats
	return h
}

// HandleRoot handles GET /
func (h *SystemHandlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Fintech Investment Intelligence Platform API",
		"version": version,
		"docs":    "/api/docs",
	})
}

// HandleHealth handles GET /api/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"service":   serviceName,
	})
}

// HandleReady handles GET /api/health/ready
func (h *SystemHandlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	status, code, database := "ready", http.StatusOK, "connected"

	if h.db == nil {
		database = "not configured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.QuickCheck(ctx); err != nil {
			h.log.Error().Err(err).Msg("Database readiness check failed")
			status, code, database = "not ready", http.StatusServiceUnavailable, "disconnected"
		}
	}

	cpuPercent, memPercent := h.stats()
	h.writeJSON(w, code, map[string]interface{}{
		"status":      status,
		"database":    database,
		"cpu_percent": cpuPercent,
		"ram_percent": memPercent,
		"timestamp":   h.now().UTC().Format(time.RFC3339),
	})
}

// hostStats returns average CPU and RAM usage in percent
func (h *SystemHandlers) hostStats() (float64, float64) {
	// 100ms sample keeps readiness probes fast
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
