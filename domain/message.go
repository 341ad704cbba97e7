// Package domain contains core concepts of the babble system.
// This file defines Publications and the per-client append-only store.
// Publications are immutable once appended.
package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Publication represents one immutable post.
type Publication struct {
	ID      uuid.UUID
	Content string
	// Coarse is seconds since server start, shown to clients and used to sort timelines.
	Coarse int64
	// Fine is an absolute nanosecond stamp, only used as the cursor comparison key.
	Fine int64
}

// PublicationStore is a time-ordered log of one client's posts.
type PublicationStore struct {
	publications []Publication
}

func NewPublicationStore() *PublicationStore {
	return &PublicationStore{}
}

func (s *PublicationStore) Append(p Publication) Publication {
	s.publications = append(s.publications, p)
	return p
}

func (s *PublicationStore) Len() int {
	return len(s.publications)
}

// After returns the publications whose fine stamp is strictly greater than cursor,
// in store order. Fine stamps grow with the store, so a binary search finds the start.
func (s *PublicationStore) After(cursor int64) []Publication {
	i := sort.Search(len(s.publications), func(i int) bool {
		return s.publications[i].Fine > cursor
	})
	return s.publications[i:]
}
