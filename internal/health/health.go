package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Status is the liveness/readiness snapshot served at /health.
type Status struct {
	Status        string  `json:"status"`
	Database      string  `json:"database"`
	DBLatencyMs   int64   `json:"db_latency_ms"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	Uptime        string  `json:"uptime"`
}

type Checker struct {
	db      *pgxpool.Pool
	started time.Time
}

func NewChecker(db *pgxpool.Pool) *Checker {
	return &Checker{db: db, started: time.Now()}
}

// Check pings the database and samples host metrics. Degraded system
// metrics never fail the check; only an unreachable database does.
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := c.db.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	s := Status{
		Status:      "ok",
		Database:    "healthy",
		DBLatencyMs: latency,
		Uptime:      time.Since(c.started).Round(time.Second).String(),
	}
	if err != nil {
		s.Status = "degraded"
		s.Database = "unhealthy"
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}
	if m, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = m.UsedPercent
	}
	if d, err := disk.Usage("/"); err == nil {
		s.DiskPercent = d.UsedPercent
	}
	return s
}
