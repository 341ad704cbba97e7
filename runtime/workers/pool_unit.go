package workers

import (
	"babble/contract"
	"context"
	"log/slog"
	"sync"
)

var _ contract.IScheduler = (*TaskPool)(nil)

// readyFlag is a binary readiness signal: set by producers, consumed by exactly one waiter.
// It is not a counter, several notifications before a wait collapse into one.
type readyFlag struct {
	mu     sync.Mutex
	cond   *sync.Cond
	isSet  bool
	closed bool
}

func newReadyFlag() *readyFlag {
	f := &readyFlag{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// await blocks until the flag is set, then clears it. It returns false once the flag is closed.
func (f *readyFlag) await() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.isSet && !f.closed {
		f.cond.Wait()
	}
	if f.closed {
		return false
	}
	f.isSet = false
	return true
}

func (f *readyFlag) notify() {
	f.mu.Lock()
	f.isSet = true
	f.cond.Signal()
	f.mu.Unlock()
}

func (f *readyFlag) close() {
	f.mu.Lock()
	f.closed = true
	f.cond.Broadcast()
	f.mu.Unlock()
}

type taskNode struct {
	next *taskNode
	task contract.Task
}

// TaskPool runs submitted tasks in FIFO order on a fixed set of workers.
//
// Submission never blocks and the queue is unbounded. A worker that dequeues
// a task while others are still queued re-signals the ready flag before
// running its own, so one wake-up cascades to as many idle workers as there
// is queued work.
type TaskPool struct {
	log   *slog.Logger
	name  string
	size  int
	ready *readyFlag

	mu   sync.Mutex
	head *taskNode
	tail *taskNode
	len  int
}

func NewTaskPool(log *slog.Logger, name string, size int) *TaskPool {
	if size < 1 {
		size = 1
	}
	return &TaskPool{
		log:   log.With("pool", name),
		name:  name,
		size:  size,
		ready: newReadyFlag(),
	}
}

// Submit appends task to the tail of the queue and wakes one idle worker.
func (p *TaskPool) Submit(task contract.Task) {
	node := &taskNode{task: task}

	p.mu.Lock()
	if p.len == 0 {
		p.head = node
	} else {
		p.tail.next = node
	}
	p.tail = node
	p.len++
	p.ready.notify()
	p.mu.Unlock()
}

// Len returns the number of queued tasks not yet picked by a worker.
func (p *TaskPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.len
}

// Workers returns one long-lived worker per pool slot, to be run under a supervisor.
func (p *TaskPool) Workers() []contract.Worker {
	res := make([]contract.Worker, 0, p.size)
	for i := 0; i < p.size; i++ {
		res = append(res, &PoolUnitWorker{pool: p, id: i})
	}
	return res
}

func (p *TaskPool) dequeue() contract.Task {
	p.mu.Lock()
	defer p.mu.Unlock()

	node := p.head
	switch p.len {
	case 0:
		return nil
	case 1:
		p.head = nil
		p.tail = nil
		p.len = 0
	default:
		p.head = node.next
		p.len--
		p.ready.notify()
	}
	return node.task
}

// PoolUnitWorker is one worker of a TaskPool.
type PoolUnitWorker struct {
	pool *TaskPool
	id   int
}

var _ contract.Worker = (*PoolUnitWorker)(nil)

func (w *PoolUnitWorker) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, w.pool.ready.close)
	defer stop()

	for {
		if !w.pool.ready.await() {
			w.pool.log.Debug("Stopping worker", "worker", w.id)
			return ctx.Err()
		}
		if task := w.pool.dequeue(); task != nil {
			task()
		}
	}
}
