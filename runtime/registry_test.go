package runtime

import (
	"babble/domain"
	"babble/errors"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Insert_And_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(10)
	alice := domain.NewClient("alice", nil, 0)

	// Given no client is registered
	_, ok := registry.Lookup(alice.Key)
	req.False(ok)

	// When alice is inserted
	req.NoError(registry.Insert(alice))

	// Then the client can be found by key
	found, ok := registry.Lookup(alice.Key)
	req.True(ok)
	req.Same(alice, found)
	req.Equal(1, registry.Len())
}

func TestRegistry_Insert_Duplicate_Key(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(10)
	req.NoError(registry.Insert(domain.NewClient("alice", nil, 0)))

	// When the same name logs in again
	err := registry.Insert(domain.NewClient("alice", nil, 0))

	// Then the registry refuses it without growing
	req.True(stderrors.Is(err, errors.ErrDuplicateRegistration))
	req.Equal(1, registry.Len())
}

func TestRegistry_Insert_Full(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(2)
	req.NoError(registry.Insert(domain.NewClient("alice", nil, 0)))
	req.NoError(registry.Insert(domain.NewClient("bob", nil, 0)))

	err := registry.Insert(domain.NewClient("clara", nil, 0))

	req.True(stderrors.Is(err, errors.ErrRegistryFull))
	req.Equal(2, registry.Len())
}

func TestRegistry_Remove_Keeps_Record_Valid(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(10)
	alice := domain.NewClient("alice", nil, 0)
	bob := domain.NewClient("bob", nil, 0)
	req.NoError(registry.Insert(alice))
	req.NoError(registry.Insert(bob))

	// Given bob follows alice
	bob.Follow(alice, domain.DefaultMaxFollow)

	// When alice is removed
	removed, ok := registry.Remove(alice.Key)

	// Then the removed reference is returned untouched
	req.True(ok)
	req.Same(alice, removed)
	req.Equal("alice", removed.Name)
	req.Equal(1, registry.Len())

	// And the record stays reachable through the followed set of bob
	req.Same(alice, bob.Followed()[1])

	// And alice is no longer listed
	_, ok = registry.Lookup(alice.Key)
	req.False(ok)
	_, ok = registry.Remove(alice.Key)
	req.False(ok)
}

func TestRegistry_Remove_Frees_Capacity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(1)
	req.NoError(registry.Insert(domain.NewClient("alice", nil, 0)))
	registry.Remove(domain.KeyFromName("alice"))

	// The same name can log in again after a disconnect
	req.NoError(registry.Insert(domain.NewClient("alice", nil, 0)))
}

func TestRegistry_Distinct_Names_Get_Distinct_Keys(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(100)
	keys := make(map[domain.Key]struct{})
	for i := 0; i < 100; i++ {
		client := domain.NewClient(fmt.Sprintf("user-%d", i), nil, 0)
		req.NoError(registry.Insert(client))
		keys[client.Key] = struct{}{}
	}
	req.Len(keys, 100)
	req.Equal(100, registry.Len())
}
