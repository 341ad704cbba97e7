package sink

import (
	"babble/contract"
	"babble/domain/event"
	"context"
	"fmt"
	"log/slog"
)

var _ contract.EventSink = DiskSink{}

// DiskSink archives every stored publication.
type DiskSink struct {
	archive contract.IPublicationArchive
	log     *slog.Logger
}

func NewDiskSink(archive contract.IPublicationArchive, log *slog.Logger) DiskSink {
	return DiskSink{archive: archive, log: log}
}

func (d DiskSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.PublicationStored:
		return d.archive.Store(evt)
	default:
		d.log.Debug(fmt.Sprintf("Not implemented event : %T", evt))
		return nil
	}
}
