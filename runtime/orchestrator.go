package runtime

import (
	"babble/contract"
	"babble/domain"
	"babble/domain/event"
	"babble/observability"
	"babble/runtime/workers"
	"babble/sink"
	"babble/transport"
	"context"
	"log/slog"
	"net"
	"time"
)

const eventsWarnRatio = 0.8

// Options sizes the pools and the periodic workers.
type Options struct {
	CommunicationWorkers int
	ExecutorWorkers      int
	BufferSize           int
	RestartInterval      time.Duration
	MetricInterval       time.Duration
	SinkTimeout          time.Duration
	Limits               domain.Limits
}

// Orchestrator wires the engine, both pools, the acceptor and the side workers
// under a single supervisor. It holds no business rule itself.
type Orchestrator struct {
	log        *slog.Logger
	supervisor *workers.Supervisor
	engine     *Engine
	comm       *workers.TaskPool
	exec       *workers.TaskPool
	server     *transport.Server
	monitoring *observability.MonitoringManager
	fanout     *workers.EventFanout
	capacity   *workers.ChannelCapacityWorker
	heartbeat  *workers.HeartbeatWorker
}

// NewOrchestrator builds every component. archive may be nil, in which case
// publications are kept in memory only and no event is emitted.
func NewOrchestrator(log *slog.Logger, listener net.Listener, archive contract.IPublicationArchive,
	clock Clock, opts Options) *Orchestrator {
	o := &Orchestrator{
		log:        log,
		supervisor: workers.NewSupervisor(log, opts.RestartInterval),
		comm:       workers.NewTaskPool(log, "communication", opts.CommunicationWorkers),
		exec:       workers.NewTaskPool(log, "executor", opts.ExecutorWorkers),
		monitoring: observability.NewMonitoringManager(log),
	}

	var events chan event.DomainEvent
	if archive != nil {
		events = make(chan event.DomainEvent, opts.BufferSize)
		o.fanout = workers.NewEventFanout(log, events, opts.SinkTimeout).
			Add(sink.NewDiskSink(archive, log))
		o.capacity = workers.NewChannelCapacityWorker(log,
			[]workers.NamedChannel{{Name: "events", Channel: events}}, opts.MetricInterval, eventsWarnRatio)
	}

	o.engine = NewEngine(log, NewRegistry(opts.Limits.MaxClient), opts.Limits, clock, events)
	o.server = transport.NewServer(log, listener, o.engine, o.comm, o.exec, o.monitoring, opts.Limits)
	o.heartbeat = workers.NewHeartbeatWorker(log, o.monitoring, opts.MetricInterval,
		o.engine.Registered, o.comm, o.exec)
	return o
}

// Start runs every worker and blocks until ctx is cancelled and all of them have returned.
func (o *Orchestrator) Start(ctx context.Context) {
	commWorkers, execWorkers := o.comm.Workers(), o.exec.Workers()
	o.supervisor.Add(o.server, o.heartbeat)
	o.supervisor.Add(commWorkers...)
	o.supervisor.Add(execWorkers...)
	if o.fanout != nil {
		o.supervisor.Add(o.fanout, o.capacity)
	}
	o.log.Info("Starting babble server",
		"communication_workers", len(commWorkers),
		"executor_workers", len(execWorkers),
		"archive", o.fanout != nil)
	o.supervisor.Run(ctx)
	o.log.Info("Babble server stopped")
}

func (o *Orchestrator) Addr() net.Addr { return o.server.Addr() }

func (o *Orchestrator) Engine() *Engine { return o.engine }

func (o *Orchestrator) Monitoring() *observability.MonitoringManager { return o.monitoring }
