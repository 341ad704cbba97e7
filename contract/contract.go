//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"babble/domain"
	"babble/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Task is one unit of work handed to a pool. It cannot be cancelled once submitted.
type Task func()

type IScheduler interface {
	Submit(task Task)
	Len() int
	Workers() []Worker
}

// Endpoint is the write side of a client connection.
// All frames of one call are written atomically with respect to other calls.
type Endpoint interface {
	domain.Endpoint
}

type IRegistry interface {
	Lookup(key domain.Key) (*domain.Client, bool)
	Insert(client *domain.Client) error
	Remove(key domain.Key) (*domain.Client, bool)
	Len() int
}

type IEngine interface {
	Execute(cmd *domain.Command) error
	Seconds() int64
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IPublicationArchive interface {
	Store(p event.PublicationStored) error
}
