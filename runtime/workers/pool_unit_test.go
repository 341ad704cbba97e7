package workers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func startPool(t *testing.T, pool *TaskPool) context.CancelFunc {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx, cancel := context.WithCancel(context.Background())
	sup := NewSupervisor(log, 10*time.Millisecond)
	sup.Add(pool.Workers()...)
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestTaskPool_Runs_Every_Task_Exactly_Once(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given more tasks than workers
	const tasks = 500
	pool := NewTaskPool(log, "exec", 4)
	startPool(t, pool)

	var wg sync.WaitGroup
	runs := make([]atomic.Int32, tasks)
	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		pool.Submit(func() {
			defer wg.Done()
			runs[i].Add(1)
		})
	}

	waitOrFail(t, &wg, 2*time.Second)

	// Then each task ran once and the queue drained
	for i := range runs {
		req.Equal(int32(1), runs[i].Load(), "task %d", i)
	}
	req.Equal(0, pool.Len())
}

func TestTaskPool_Single_Worker_Is_FIFO(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	pool := NewTaskPool(log, "fifo", 1)

	// Given tasks queued before any worker is running
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	req.Equal(10, pool.Len())

	// When the only worker starts
	startPool(t, pool)
	waitOrFail(t, &wg, 2*time.Second)

	// Then the queue is consumed head first
	req.Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestTaskPool_Burst_Wakes_Idle_Workers(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	const workers = 4
	pool := NewTaskPool(log, "burst", workers)
	startPool(t, pool)

	// Given tasks that only finish once all of them run at the same time
	var inFlight atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		pool.Submit(func() {
			defer wg.Done()
			if inFlight.Add(1) == workers {
				close(release)
			}
			<-release
		})
	}

	// Then the cascading wake-up reaches every idle worker
	waitOrFail(t, &wg, 2*time.Second)
	req.Equal(int32(workers), inFlight.Load())
}

func TestTaskPool_Recovers_From_Panicking_Task(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	pool := NewTaskPool(log, "panic", 1)
	startPool(t, pool)

	// Given a task that panics followed by a regular one
	var wg sync.WaitGroup
	wg.Add(1)
	pool.Submit(func() { panic("boom") })
	pool.Submit(wg.Done)

	// Then the restarted worker still drains the queue
	waitOrFail(t, &wg, 2*time.Second)
}

func TestTaskPool_Stops_Idle_Workers_On_Cancel(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	pool := NewTaskPool(log, "idle", 3)

	ctx, cancel := context.WithCancel(context.Background())
	sup := NewSupervisor(log, 10*time.Millisecond)
	sup.Add(pool.Workers()...)
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	// When the context is cancelled while every worker waits
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("idle workers should have stopped")
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("tasks did not complete in time")
	}
}
