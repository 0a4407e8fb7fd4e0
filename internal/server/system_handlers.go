package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/hindsight/internal/database"
	"github.com/aristath/hindsight/internal/scheduler"
)

// SystemHandlers serves health and operational endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	historyDB *database.DB
	cacheDB   *database.DB
	startTime time.Time

	priceSyncJob scheduler.Job
}

// HealthResponse is the /api/system/health payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemPercent    float64 `json:"mem_percent"`
	HistoryDBOK   bool    `json:"history_db_ok"`
	CacheDBOK     bool    `json:"cache_db_ok"`
}

// DiskUsageResponse is the /api/system/disk payload.
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, historyDB, cacheDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		historyDB: historyDB,
		cacheDB:   cacheDB,
		startTime: time.Now(),
	}
}

// SetPriceSyncJob registers the job behind POST /api/jobs/price-sync
func (h *SystemHandlers) SetPriceSyncJob(job scheduler.Job) {
	h.priceSyncJob = job
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Get("/disk", h.HandleDiskUsage)
	})
	r.Post("/jobs/price-sync", h.HandleTriggerPriceSync)
}

// HandleHealth handles GET /api/system/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	resp := HealthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPct,
		MemPercent:    memPct,
		HistoryDBOK:   h.pingDB(h.historyDB),
		CacheDBOK:     h.pingDB(h.cacheDB),
	}
	if !resp.HistoryDBOK || !resp.CacheDBOK {
		resp.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode health response")
	}
}

// HandleDiskUsage handles GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	resp := DiskUsageResponse{DataDirMB: h.getDirSize(h.dataDir)}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode disk usage response")
	}
}

// HandleTriggerPriceSync handles POST /api/jobs/price-sync. The sync runs in
// the background; the response only acknowledges the trigger.
func (h *SystemHandlers) HandleTriggerPriceSync(w http.ResponseWriter, r *http.Request) {
	if h.priceSyncJob == nil {
		http.Error(w, "price sync job not configured", http.StatusServiceUnavailable)
		return
	}

	go func() {
		if err := h.priceSyncJob.Run(); err != nil {
			h.log.Error().Err(err).Msg("Triggered price sync failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

func (h *SystemHandlers) pingDB(db *database.DB) bool {
	if db == nil {
		return false
	}
	return db.Conn().Ping() == nil
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats samples CPU and RAM usage percentages. The CPU sample uses a
// 100ms window to keep the endpoint responsive for pollers.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
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
