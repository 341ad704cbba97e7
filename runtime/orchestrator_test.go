package runtime_test

import (
	"babble/domain"
	"babble/protocol"
	"babble/repositories"
	"babble/runtime"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_Archives_Publications(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	repository := repositories.NewPublicationRepository(db, log)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)

	o := runtime.NewOrchestrator(log, listener, repository, runtime.RealClock(), runtime.Options{
		CommunicationWorkers: 2,
		ExecutorWorkers:      2,
		BufferSize:           16,
		RestartInterval:      10 * time.Millisecond,
		MetricInterval:       50 * time.Millisecond,
		SinkTimeout:          time.Second,
		Limits:               domain.DefaultLimits(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Start(ctx)
		close(done)
	}()

	// Given a client that logs in and publishes
	conn, err := net.Dial("tcp", o.Addr().String())
	req.NoError(err)
	defer conn.Close()
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))

	req.NoError(protocol.WriteFrame(conn, []byte("LOGIN alice")))
	_, err = protocol.ReadFrame(conn, 1024)
	req.NoError(err)

	req.NoError(protocol.WriteFrame(conn, []byte("PUBLISH archived")))
	answer, err := protocol.ReadFrame(conn, 1024)
	req.NoError(err)
	req.Regexp(`^alice\[\d+\]: \{ archived \}$`, string(answer))

	// Then the publication reaches the archive
	req.Eventually(func() bool {
		publications, err := repository.List(nil)
		return err == nil && len(publications) == 1 && publications[0].Content == "archived"
	}, 2*time.Second, 10*time.Millisecond)

	// When the context is cancelled every worker stops and the client is unregistered
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("orchestrator did not stop")
	}
	req.Equal(0, o.Engine().Registered())
	req.GreaterOrEqual(o.Monitoring().Snapshot().Commands, uint64(2))
}

func TestOrchestrator_Without_Archive(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)

	o := runtime.NewOrchestrator(log, listener, nil, runtime.RealClock(), runtime.Options{
		CommunicationWorkers: 1,
		ExecutorWorkers:      1,
		BufferSize:           1,
		RestartInterval:      10 * time.Millisecond,
		MetricInterval:       time.Second,
		SinkTimeout:          time.Second,
		Limits:               domain.DefaultLimits(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Start(ctx)
		close(done)
	}()

	conn, err := net.Dial("tcp", o.Addr().String())
	req.NoError(err)
	defer conn.Close()
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))

	req.NoError(protocol.WriteFrame(conn, []byte("LOGIN bob")))
	answer, err := protocol.ReadFrame(conn, 1024)
	req.NoError(err)
	req.Regexp(`^bob\[\d+\]: registered with key \d+$`, string(answer))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("orchestrator did not stop")
	}
}
