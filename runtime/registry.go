package runtime

import (
	"babble/contract"
	"babble/domain"
	"babble/errors"
	"fmt"
)

var _ contract.IRegistry = (*Registry)(nil)

// Registry is the directory of logged-in clients.
//
// Records live in an append-only arena and are never reclaimed: Remove only
// drops the key -> slot mapping, so followed sets and in-flight tasks that
// still hold a *domain.Client keep a valid record.
//
// Registry is not safe for concurrent use. Callers hold the engine's global
// lock across every lookup-then-mutate sequence.
type Registry struct {
	capacity int
	arena    []*domain.Client
	slots    map[domain.Key]int
}

func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		slots:    make(map[domain.Key]int),
	}
}

func (r *Registry) Lookup(key domain.Key) (*domain.Client, bool) {
	slot, ok := r.slots[key]
	if !ok {
		return nil, false
	}
	return r.arena[slot], true
}

// Insert lists a client. It fails if the key is already listed or the registry is full.
func (r *Registry) Insert(client *domain.Client) error {
	if len(r.slots) >= r.capacity {
		return fmt.Errorf("%w: %d clients", errors.ErrRegistryFull, r.capacity)
	}
	if _, ok := r.slots[client.Key]; ok {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateRegistration, client.Key)
	}
	r.arena = append(r.arena, client)
	r.slots[client.Key] = len(r.arena) - 1
	return nil
}

// Remove unlists the client and hands back the record, which stays valid.
func (r *Registry) Remove(key domain.Key) (*domain.Client, bool) {
	slot, ok := r.slots[key]
	if !ok {
		return nil, false
	}
	delete(r.slots, key)
	return r.arena[slot], true
}

func (r *Registry) Len() int {
	return len(r.slots)
}
