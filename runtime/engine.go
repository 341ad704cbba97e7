// Package runtime owns the shared client state and the machinery that runs commands against it.
// It holds the single global lock; domain types never lock themselves.
package runtime

import (
	"babble/contract"
	"babble/domain"
	"babble/domain/event"
	"babble/errors"
	"babble/projection"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ contract.IEngine = (*Engine)(nil)

// Engine interprets commands against the registry and the publication stores.
// A single mutex is held for the whole interpretation of a command, which makes
// compound rules such as "insert only if absent" or "follow only a listed target"
// atomic. Nothing blocking happens while it is held: events are handed off with
// a non-blocking send and answers are written by the caller after Execute returns.
type Engine struct {
	mu        sync.Mutex
	log       *slog.Logger
	registry  *Registry
	limits    domain.Limits
	clock     Clock
	start      time.Time
	lastStamp  int64
	lastCoarse int64
	events    chan<- event.DomainEvent
}

// NewEngine builds an engine. events may be nil when nothing consumes them.
func NewEngine(log *slog.Logger, registry *Registry, limits domain.Limits,
	clock Clock, events chan<- event.DomainEvent) *Engine {
	return &Engine{
		log:      log,
		registry: registry,
		limits:   limits,
		clock:    clock,
		start:    clock.Now(),
		events:   events,
	}
}

// Execute runs cmd under the global lock and leaves its result in cmd.Answer.
// Business failures are returned for logging only; an error answer is always
// generated for them.
func (e *Engine) Execute(cmd *domain.Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch cmd.Kind {
	case domain.Login:
		return e.login(cmd)
	case domain.Publish:
		return e.publish(cmd)
	case domain.Follow:
		return e.follow(cmd)
	case domain.Timeline:
		return e.timeline(cmd)
	case domain.FollowCount:
		return e.followCount(cmd)
	case domain.Rendezvous:
		return e.rendezvous(cmd)
	case domain.Unregister:
		return e.unregister(cmd)
	default:
		return fmt.Errorf("%w: %d", errors.ErrUnknownCommand, cmd.Kind)
	}
}

// Registered returns the number of listed clients.
func (e *Engine) Registered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len()
}

// Seconds returns the coarse clock: seconds elapsed since the engine started.
func (e *Engine) Seconds() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seconds(e.clock.Now())
}

// seconds never goes backwards, even when the wall clock does, so that each
// author store stays sorted by coarse stamp.
func (e *Engine) seconds(now time.Time) int64 {
	s := max(now.Unix()-e.start.Unix(), e.lastCoarse)
	e.lastCoarse = s
	return s
}

// stamp issues a fine timestamp strictly greater than every previous one.
func (e *Engine) stamp(now time.Time) int64 {
	n := now.UnixNano()
	if n <= e.lastStamp {
		n = e.lastStamp + 1
	}
	e.lastStamp = n
	return n
}

func (e *Engine) login(cmd *domain.Command) error {
	now := e.clock.Now()
	client := domain.NewClient(cmd.Payload, cmd.Endpoint, e.stamp(now))
	cmd.Key = client.Key

	if err := e.registry.Insert(client); err != nil {
		cmd.Answer = e.errorAnswer(cmd, client.Name)
		return err
	}

	e.log.Info("New client", "name", client.Name, "key", client.Key.String())
	cmd.Answer = domain.Single(fmt.Sprintf("%s[%d]: registered with key %d",
		client.Name, e.seconds(now), client.Key))
	return nil
}

func (e *Engine) publish(cmd *domain.Command) error {
	client, err := e.caller(cmd)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	pub := client.Store.Append(domain.Publication{
		ID:      uuid.New(),
		Content: cmd.Payload,
		Coarse:  e.seconds(now),
		Fine:    e.stamp(now),
	})

	e.log.Info("Client published", "name", client.Name, "content", pub.Content, "at", pub.Coarse)
	e.emit(event.PublicationStored{
		ID:      pub.ID,
		Key:     client.Key,
		Author:  client.Name,
		Content: pub.Content,
		Coarse:  pub.Coarse,
		Fine:    pub.Fine,
	})

	cmd.Answer = domain.Single(fmt.Sprintf("%s[%d]: { %s }", client.Name, pub.Coarse, pub.Content))
	return nil
}

// follow treats a missing target and a full follow set as soft failures:
// the issuer gets an error answer and the command still counts as handled.
func (e *Engine) follow(cmd *domain.Command) error {
	client, err := e.caller(cmd)
	if err != nil {
		return err
	}

	target, ok := e.registry.Lookup(domain.KeyFromName(cmd.Payload))
	if !ok {
		e.log.Debug("Follow target not found", "name", client.Name, "target", cmd.Payload,
			"error", errors.ErrFollowTargetMissing)
		cmd.Answer = e.errorAnswer(cmd, client.Name)
		return nil
	}

	added, full := client.Follow(target, e.limits.MaxFollow)
	if full {
		e.log.Warn("Follow set is full", "name", client.Name, "target", target.Name,
			"error", errors.ErrFollowLimitReached)
		cmd.Answer = e.errorAnswer(cmd, client.Name)
		return nil
	}
	if added {
		e.log.Info("Client followed", "name", client.Name, "target", target.Name)
	}

	cmd.Answer = domain.Single(fmt.Sprintf("%s[%d]: follow %s", client.Name, e.seconds(e.clock.Now()), target.Name))
	return nil
}

// timeline advances the cursor to the command's instant even when the transport
// later drops part of the answer: read means advanced past.
func (e *Engine) timeline(cmd *domain.Command) error {
	end := e.stamp(e.clock.Now())

	client, err := e.caller(cmd)
	if err != nil {
		return err
	}

	items := projection.Merge(client, client.Cursor, end)
	client.Cursor = end

	e.log.Debug("Timeline computed", "name", client.Name, "items", len(items))
	cmd.Answer = domain.Set(projection.Lines(items))
	return nil
}

func (e *Engine) followCount(cmd *domain.Command) error {
	client, err := e.caller(cmd)
	if err != nil {
		return err
	}
	cmd.Answer = domain.Single(fmt.Sprintf("%s[%d]: has %d followers",
		client.Name, e.seconds(e.clock.Now()), client.Followers()))
	return nil
}

func (e *Engine) rendezvous(cmd *domain.Command) error {
	client, err := e.caller(cmd)
	if err != nil {
		return err
	}
	cmd.Answer = domain.Single(fmt.Sprintf("%s[%d]: rdv_ack", client.Name, e.seconds(e.clock.Now())))
	return nil
}

// unregister unlists the caller. The record itself is left intact for whoever still holds it.
func (e *Engine) unregister(cmd *domain.Command) error {
	cmd.Answer = domain.Answer{Shape: domain.NoAnswer}
	client, ok := e.registry.Remove(cmd.Key)
	if !ok {
		e.log.Debug("Unregister of an unlisted client", "key", cmd.Key.String())
		return nil
	}
	e.log.Info("Unregister client", "name", client.Name, "key", client.Key.String())
	return nil
}

// caller resolves the issuing client, or generates the unknown-client error answer.
func (e *Engine) caller(cmd *domain.Command) (*domain.Client, error) {
	client, ok := e.registry.Lookup(cmd.Key)
	if !ok {
		cmd.Answer = e.errorAnswer(cmd, cmd.Key.String())
		return nil, fmt.Errorf("%w: key %s", errors.ErrUnknownClient, cmd.Key)
	}
	return client, nil
}

func (e *Engine) errorAnswer(cmd *domain.Command, name string) domain.Answer {
	if cmd.Kind.HasPayload() {
		return domain.Single(fmt.Sprintf("%s[%d]: ERROR -> %s { %s }", name, e.seconds(e.clock.Now()), cmd.Kind, cmd.Payload))
	}
	return domain.Single(fmt.Sprintf("%s[%d]: ERROR -> %s", name, e.seconds(e.clock.Now()), cmd.Kind))
}

func (e *Engine) emit(evt event.DomainEvent) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- evt:
	default:
		e.log.Warn("Event channel full, dropping event", "key", evt.AuthorKey().String())
	}
}
