package workers

import (
	"babble/contract"
	"babble/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically samples queue sizes and process health, then logs a snapshot.
type HeartbeatWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	interval   time.Duration
	registered func() int
	comm       contract.IScheduler
	exec       contract.IScheduler
}

func NewHeartbeatWorker(
	log *slog.Logger,
	monitoring *observability.MonitoringManager,
	interval time.Duration,
	registered func() int,
	comm, exec contract.IScheduler,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:        log,
		monitoring: monitoring,
		interval:   interval,
		registered: registered,
		comm:       comm,
		exec:       exec,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Beat(p)
		}
	}
}

// Beat records the gauges and logs one heartbeat line. p may be nil when process stats are unavailable.
func (w *HeartbeatWorker) Beat(p *process.Process) observability.MonitoringStats {
	w.monitoring.UpdateGauges(w.registered(), w.comm.Len(), w.exec.Len())
	stats := w.monitoring.Snapshot()

	attrs := []any{
		"registered", stats.Registered,
		"sessions_open", stats.SessionsOpened - stats.SessionsClosed,
		"commands", stats.Commands,
		"commands_per_sec", stats.CommandsPerSec,
		"command_errors", stats.CommandErrors,
		"parse_errors", stats.ParseErrors,
		"dropped_answers", stats.DroppedAnswers,
		"comm_queue", stats.CommQueueSize,
		"exec_queue", stats.ExecQueueSize,
		"goroutines", stats.NumGoroutine,
		"alloc_mb", stats.AllocMemMb,
	}
	if p != nil {
		rss, cpu, err := selfStats(p)
		if err != nil {
			w.log.Warn("Failed to collect self stats", "error", err)
		} else {
			attrs = append(attrs, "rss_bytes", rss, "cpu_percent", cpu)
		}
	}
	w.log.Info("Heartbeat", attrs...)
	return stats
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
