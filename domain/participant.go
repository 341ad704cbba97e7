// Package domain contains core concepts of the babble system.
// This file defines Client records and their follow-graph invariants.
// No runtime, network, or locking logic should be added here: every
// mutation below is expected to run under the engine's global lock.
package domain

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
)

// Key is the numeric identity of a client, derived from its login name.
type Key uint64

func (k Key) String() string {
	return strconv.FormatUint(uint64(k), 10)
}

// KeyFromName hashes a client name into its registry key.
func KeyFromName(name string) Key {
	return Key(xxhash.Sum64String(name))
}

// Endpoint is the opaque handle the network layer binds to a client at login.
type Endpoint interface {
	Send(frames ...[]byte) error
}

type Client struct {
	Key      Key
	Name     string
	Endpoint Endpoint
	Store    *PublicationStore

	followed  []*Client
	followers int
	// Cursor is the fine timestamp ending the last delivered timeline window.
	Cursor int64
}

// NewClient builds a record that follows itself and counts itself as a follower.
func NewClient(name string, endpoint Endpoint, cursor int64) *Client {
	c := &Client{
		Key:       KeyFromName(name),
		Name:      name,
		Endpoint:  endpoint,
		Store:     NewPublicationStore(),
		followers: 1,
		Cursor:    cursor,
	}
	c.followed = []*Client{c}
	return c
}

// Followed returns the followed set, self first, in follow order.
func (c *Client) Followed() []*Client {
	return c.followed
}

func (c *Client) Followers() int {
	return c.followers
}

func (c *Client) IsFollowing(key Key) bool {
	return lo.ContainsBy(c.followed, func(f *Client) bool {
		return f.Key == key
	})
}

// Follow adds an edge towards target. It returns false without mutating anything
// when target is already followed, and reports full when the follow set
// already holds max entries.
func (c *Client) Follow(target *Client, max int) (added bool, full bool) {
	if c.IsFollowing(target.Key) {
		return false, false
	}
	if len(c.followed) >= max {
		return false, true
	}
	c.followed = append(c.followed, target)
	target.followers++
	return true, false
}
