package event

import (
	"babble/domain"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is emitted by the engine once a command has mutated state.
type DomainEvent interface {
	AuthorKey() domain.Key
}

type PublicationStored struct {
	ID      uuid.UUID
	Key     domain.Key
	Author  string
	Content string
	Coarse  int64
	Fine    int64
}

func (p PublicationStored) AuthorKey() domain.Key { return p.Key }

func (p PublicationStored) At() time.Time {
	return time.Unix(0, p.Fine).UTC()
}
