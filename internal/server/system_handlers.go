package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/stockledger/internal/clientdata"
	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/modules/ledger"
	"github.com/aristath/stockledger/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles system-wide monitoring requests
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	ledger      *ledger.Store
	cacheDB     *database.DB
	cacheRepo   *clientdata.Repository
	scheduler   *scheduler.Scheduler
}

// NewSystemHandlers creates a new system handlers instance.
// cacheDB, cacheRepo and sched may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	ledgerStore *ledger.Store,
	cacheDB *database.DB,
	cacheRepo *clientdata.Repository,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		ledger:      ledgerStore,
		cacheDB:     cacheDB,
		cacheRepo:   cacheRepo,
		scheduler:   sched,
	}
}

// LedgerStatus describes the ledger file
type LedgerStatus struct {
	Path       string `json:"path"`
	Exists     bool   `json:"exists"`
	SizeBytes  int64  `json:"size_bytes"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Rows       int    `json:"rows"`
	Error      string `json:"error,omitempty"`
}

// CacheStatus describes the market data cache
type CacheStatus struct {
	Stats   *database.Stats  `json:"stats,omitempty"`
	Entries map[string]int64 `json:"entries,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	CPUPercent    float64      `json:"cpu_percent"`
	MemoryPercent float64      `json:"memory_percent"`
	Goroutines    int          `json:"goroutines"`
	HeapAllocMB   float64      `json:"heap_alloc_mb"`
	Ledger        LedgerStatus `json:"ledger"`
	Cache         *CacheStatus `json:"cache,omitempty"`
	Jobs          []string     `json:"jobs,omitempty"`
}

// HandleSystemStatus returns process, host, ledger and cache status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(memStats.HeapAlloc) / 1024 / 1024,
		Ledger:        h.ledgerStatus(),
		Cache:         h.cacheStatus(),
	}
	if response.Ledger.Error != "" {
		response.Status = "degraded"
	}
	if h.scheduler != nil {
		response.Jobs = h.scheduler.Jobs()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

func (h *SystemHandlers) ledgerStatus() LedgerStatus {
	status := LedgerStatus{Path: h.ledger.Path()}

	info, err := h.ledger.Stat()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	if info == nil {
		return status
	}

	status.Exists = true
	status.SizeBytes = info.Size()
	status.ModifiedAt = info.ModTime().UTC().Format(time.RFC3339)

	rows, err := h.ledger.Rows()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Rows = len(rows)
	return status
}

func (h *SystemHandlers) cacheStatus() *CacheStatus {
	if h.cacheDB == nil {
		return nil
	}

	status := &CacheStatus{}
	stats, err := h.cacheDB.GetStats()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get cache database stats")
		status.Error = err.Error()
		return status
	}
	status.Stats = stats

	if h.cacheRepo != nil {
		entries, err := h.cacheRepo.Counts()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count cache entries")
			status.Error = err.Error()
			return status
		}
		status.Entries = entries
	}
	return status
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the endpoint responsive
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
