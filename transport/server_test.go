package transport_test

import (
	"babble/domain"
	"babble/observability"
	"babble/protocol"
	"babble/runtime"
	"babble/runtime/workers"
	"babble/transport"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	addr   string
	engine *runtime.Engine
}

// newFixture starts a server with a single executor worker so that commands
// of one connection run in the order they were sent.
func newFixture(t *testing.T) fixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	limits := domain.DefaultLimits()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	engine := runtime.NewEngine(log, runtime.NewRegistry(limits.MaxClient), limits, runtime.RealClock(), nil)
	comm := workers.NewTaskPool(log, "comm", 4)
	exec := workers.NewTaskPool(log, "exec", 1)
	server := transport.NewServer(log, listener, engine, comm, exec, observability.NewMonitoringManager(log), limits)

	ctx, cancel := context.WithCancel(context.Background())
	sup := workers.NewSupervisor(log, 10*time.Millisecond)
	sup.Add(server)
	sup.Add(comm.Workers()...)
	sup.Add(exec.Workers()...)
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return fixture{addr: listener.Addr().String(), engine: engine}
}

type client struct {
	t    *testing.T
	conn net.Conn
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(msg string) {
	c.t.Helper()
	require.NoError(c.t, protocol.WriteFrame(c.conn, []byte(msg)))
}

func (c *client) read() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	frame, err := protocol.ReadFrame(c.conn, 1024)
	require.NoError(c.t, err)
	return string(frame)
}

func (c *client) readCount() int {
	c.t.Helper()
	count, err := protocol.DecodeCount([]byte(c.read()))
	require.NoError(c.t, err)
	return count
}

func (c *client) login(name string) {
	c.t.Helper()
	c.send("LOGIN " + name)
	require.Regexp(c.t, `^`+name+`\[\d+\]: registered with key \d+$`, c.read())
}

func TestServer_Publish_Follow_Timeline(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given alice and bob connected, bob following alice
	alice := dial(t, f.addr)
	alice.login("alice")
	bob := dial(t, f.addr)
	bob.login("bob")

	bob.send("FOLLOW alice")
	req.Regexp(`^bob\[\d+\]: follow alice$`, bob.read())

	// When alice publishes
	alice.send("PUBLISH hello world")
	req.Regexp(`^alice\[\d+\]: \{ hello world \}$`, alice.read())

	// Then the publication shows up in bob's timeline
	bob.send("TIMELINE")
	count := bob.readCount()
	req.Equal(1, count)
	req.Regexp(`^    alice\[\d+\]: hello world$`, bob.read())

	// And alice counts two followers, the self-follow included
	alice.send("FOLLOW_COUNT")
	req.Regexp(`^alice\[\d+\]: has 2 followers$`, alice.read())
}

func TestServer_Fire_And_Forget_Has_No_Answer(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := dial(t, f.addr)
	alice.login("alice")

	// When a lower-case publish is followed by a rendezvous
	alice.send("publish quiet")
	alice.send("RDV")

	// Then the first frame back is the rendezvous ack
	req.Regexp(`^alice\[\d+\]: rdv_ack$`, alice.read())

	// And the publication was still stored
	alice.send("TIMELINE")
	count := alice.readCount()
	req.Equal(1, count)
	req.Regexp(`^    alice\[\d+\]: quiet$`, alice.read())
}

func TestServer_Parse_Error_Keeps_Session(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := dial(t, f.addr)
	alice.login("alice")

	alice.send("SHOUT hi")
	req.Regexp(`^alice\[\d+\]: ERROR -> SHOUT hi$`, alice.read())

	alice.send("LOGIN again")
	req.Regexp(`^alice\[\d+\]: ERROR -> LOGIN again$`, alice.read())

	alice.send("RDV")
	req.Regexp(`^alice\[\d+\]: rdv_ack$`, alice.read())
}

func TestServer_First_Message_Must_Be_Login(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	c := dial(t, f.addr)
	c.send("PUBLISH hi")

	// Then the server closes the connection without answering
	req.NoError(c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, err := protocol.ReadFrame(c.conn, 1024)
	req.ErrorIs(err, io.EOF)
}

func TestServer_Duplicate_Login_Stays_In_Handshake(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := dial(t, f.addr)
	alice.login("alice")

	// Given a second connection using the same name
	other := dial(t, f.addr)
	other.send("LOGIN alice")
	req.Regexp(`^alice\[\d+\]: ERROR -> LOGIN \{ alice \}$`, other.read())

	// Then it may retry with another name
	other.login("carol")
	req.Equal(2, f.engine.Registered())
}

func TestServer_Disconnect_Unregisters(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := dial(t, f.addr)
	alice.login("alice")
	req.Equal(1, f.engine.Registered())

	// When the client goes away
	req.NoError(alice.conn.Close())

	// Then its key is freed
	req.Eventually(func() bool { return f.engine.Registered() == 0 }, 2*time.Second, 10*time.Millisecond)

	again := dial(t, f.addr)
	again.login("alice")
}
