package workers

import (
	"babble/contract"
	"babble/domain/event"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EventFanout hands every domain event to each registered sink, in registration order.
//
// Delivery is best effort: a failing or slow sink is logged and the event moves
// on. Nothing here feeds back into the engine, which never waits on sinks.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.DomainEvent
	sinks       []contract.EventSink
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, events <-chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, events: events, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.drain()
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// drain flushes events already queued when the worker is asked to stop.
func (w *EventFanout) drain() {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(context.Background(), evt)
		default:
			return
		}
	}
}

// Fanout delivers one event to every sink.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Error("Sink failed to consume event", "sink", fmt.Sprintf("%T", sink), "error", err)
		}
		cancel()
	}
}
