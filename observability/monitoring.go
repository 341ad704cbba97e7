package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MonitoringStats is a point-in-time view of the server activity.
type MonitoringStats struct {
	SessionsOpened uint64  `json:"sessions_opened"`
	SessionsClosed uint64  `json:"sessions_closed"`
	Commands       uint64  `json:"commands"`
	CommandErrors  uint64  `json:"command_errors"`
	ParseErrors    uint64  `json:"parse_errors"`
	DroppedAnswers uint64  `json:"dropped_answers"`
	Registered     int     `json:"registered"`
	CommandsPerSec float64 `json:"commands_per_sec"`
	CommQueueSize  int     `json:"comm_queue_size"`
	ExecQueueSize  int     `json:"exec_queue_size"`
	AllocMemMb     uint64  `json:"alloc_mem_mb"`
	NumGC          uint32  `json:"num_gc"`
	NumGoroutine   int     `json:"num_goroutine"`
}

// MonitoringManager collects counters from the transport and the engine.
// Counters are lock-free; gauges and the rate computation share a mutex.
type MonitoringManager struct {
	log *slog.Logger
	mu  sync.Mutex

	sessionsOpened uint64
	sessionsClosed uint64
	commands       uint64
	commandErrors  uint64
	parseErrors    uint64
	droppedAnswers uint64

	registered    int
	commQueueSize int
	execQueueSize int

	lastCommands uint64
	lastCheck    time.Time
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log, lastCheck: time.Now()}
}

func (mm *MonitoringManager) IncrSessionOpened() { atomic.AddUint64(&mm.sessionsOpened, 1) }

func (mm *MonitoringManager) IncrSessionClosed() { atomic.AddUint64(&mm.sessionsClosed, 1) }

func (mm *MonitoringManager) IncrCommand() { atomic.AddUint64(&mm.commands, 1) }

func (mm *MonitoringManager) IncrCommandError() { atomic.AddUint64(&mm.commandErrors, 1) }

func (mm *MonitoringManager) IncrParseError() { atomic.AddUint64(&mm.parseErrors, 1) }

func (mm *MonitoringManager) IncrDroppedAnswer() { atomic.AddUint64(&mm.droppedAnswers, 1) }

// UpdateGauges records the sizes sampled by the heartbeat.
func (mm *MonitoringManager) UpdateGauges(registered, commQueue, execQueue int) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.registered = registered
	mm.commQueueSize = commQueue
	mm.execQueueSize = execQueue
}

// Snapshot returns the current stats. The command rate covers the time since the previous snapshot.
func (mm *MonitoringManager) Snapshot() MonitoringStats {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	commands := atomic.LoadUint64(&mm.commands)
	now := time.Now()
	rate := 0.0
	if elapsed := now.Sub(mm.lastCheck).Seconds(); elapsed > 0 {
		rate = float64(commands-mm.lastCommands) / elapsed
	}
	mm.lastCommands = commands
	mm.lastCheck = now

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MonitoringStats{
		SessionsOpened: atomic.LoadUint64(&mm.sessionsOpened),
		SessionsClosed: atomic.LoadUint64(&mm.sessionsClosed),
		Commands:       commands,
		CommandErrors:  atomic.LoadUint64(&mm.commandErrors),
		ParseErrors:    atomic.LoadUint64(&mm.parseErrors),
		DroppedAnswers: atomic.LoadUint64(&mm.droppedAnswers),
		Registered:     mm.registered,
		CommandsPerSec: rate,
		CommQueueSize:  mm.commQueueSize,
		ExecQueueSize:  mm.execQueueSize,
		AllocMemMb:     m.Alloc / 1024 / 1024,
		NumGC:          m.NumGC,
		NumGoroutine:   runtime.NumGoroutine(),
	}
}
