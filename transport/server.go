// Package transport accepts connections and runs one session per client.
package transport

import (
	"babble/contract"
	"babble/domain"
	"babble/errors"
	"babble/observability"
	"babble/protocol"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
)

var _ contract.Worker = (*Server)(nil)

// Server is the connection acceptor. Each accepted connection becomes a session
// task on the communication pool; each parsed command becomes a task on the
// executor pool.
type Server struct {
	log        *slog.Logger
	listener   net.Listener
	engine     contract.IEngine
	comm       contract.IScheduler
	exec       contract.IScheduler
	monitoring *observability.MonitoringManager
	limits     domain.Limits

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(
	log *slog.Logger,
	listener net.Listener,
	engine contract.IEngine,
	comm, exec contract.IScheduler,
	monitoring *observability.MonitoringManager,
	limits domain.Limits,
) *Server {
	return &Server{
		log:        log,
		listener:   listener,
		engine:     engine,
		comm:       comm,
		exec:       exec,
		monitoring: monitoring,
		limits:     limits,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Run accepts connections until ctx is cancelled, then closes the listener and every open connection.
func (s *Server) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.shutdown)
	defer stop()

	s.log.Info("Listening", "addr", s.listener.Addr().String())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Warn("Accept failed", "error", err)
			continue
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		s.log.Debug("Connection accepted", "remote", conn.RemoteAddr().String())
		s.comm.Submit(func() { s.serve(conn) })
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) shutdown() {
	_ = s.listener.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
}

// serve runs one session: the login handshake, then the command loop.
// It always unregisters the client before returning.
func (s *Server) serve(conn net.Conn) {
	defer s.untrack(conn)
	defer func() { _ = conn.Close() }()

	s.monitoring.IncrSessionOpened()
	defer s.monitoring.IncrSessionClosed()

	ep := NewConnEndpoint(conn)
	key, name, err := s.handshake(conn, ep)
	if err != nil {
		s.log.Debug("Handshake ended", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}
	defer s.unregister(key)

	for {
		frame, err := protocol.ReadFrame(conn, s.limits.FrameSize)
		if err != nil {
			s.logReadError(name, err)
			return
		}

		cmd, err := protocol.Parse(frame, s.limits)
		if err == nil && cmd.Kind == domain.Login {
			err = &protocol.ParseError{Raw: strings.TrimRight(string(frame), "\r\n\x00"), Reason: "already logged in", AnswerExpected: true}
		}
		if err != nil {
			s.rejectParse(ep, name, err)
			continue
		}

		cmd.Key = key
		s.exec.Submit(func() { s.execute(ep, cmd) })
	}
}

// handshake reads messages until a login succeeds. A failed login keeps the
// handshake open; anything that is not a login ends the session.
func (s *Server) handshake(conn net.Conn, ep *ConnEndpoint) (domain.Key, string, error) {
	for {
		frame, err := protocol.ReadFrame(conn, s.limits.FrameSize)
		if err != nil {
			return 0, "", err
		}

		cmd, err := protocol.Parse(frame, s.limits)
		if err != nil {
			s.monitoring.IncrParseError()
			return 0, "", err
		}
		if cmd.Kind != domain.Login {
			s.monitoring.IncrParseError()
			return 0, "", fmt.Errorf("%w: got %s", errors.ErrNotLogin, cmd.Kind)
		}

		cmd.Endpoint = ep
		execErr := s.engine.Execute(cmd)
		s.monitoring.IncrCommand()
		if err := Deliver(ep, cmd.Answer, s.limits.TimelineMax); err != nil {
			if execErr == nil {
				s.unregister(cmd.Key)
			}
			return 0, "", err
		}
		if execErr != nil {
			s.monitoring.IncrCommandError()
			s.log.Info("Login refused", "name", cmd.Payload, "error", execErr)
			continue
		}
		return cmd.Key, cmd.Payload, nil
	}
}

// execute runs on the executor pool. The engine lock is released before the answer is written.
func (s *Server) execute(ep domain.Endpoint, cmd *domain.Command) {
	err := s.engine.Execute(cmd)
	s.monitoring.IncrCommand()
	if err != nil {
		s.monitoring.IncrCommandError()
		s.log.Debug("Command failed", "kind", cmd.Kind.String(), "key", cmd.Key.String(), "error", err)
	}
	if !cmd.AnswerExpected {
		return
	}
	if err := Deliver(ep, cmd.Answer, s.limits.TimelineMax); err != nil {
		s.monitoring.IncrDroppedAnswer()
		s.log.Debug("Answer dropped", "kind", cmd.Kind.String(), "key", cmd.Key.String(), "error", err)
	}
}

func (s *Server) rejectParse(ep domain.Endpoint, name string, err error) {
	s.monitoring.IncrParseError()
	s.log.Warn("Message dropped", "name", name, "error", err)

	var parseErr *protocol.ParseError
	if !errors.As(err, &parseErr) || !parseErr.AnswerExpected {
		return
	}
	msg := fmt.Sprintf("%s[%d]: ERROR -> %s", name, s.engine.Seconds(), parseErr.Raw)
	if err := ep.Send(protocol.EncodeMessage(msg)); err != nil {
		s.monitoring.IncrDroppedAnswer()
	}
}

func (s *Server) unregister(key domain.Key) {
	cmd := domain.NewCommand(domain.Unregister, key, "", false)
	if err := s.engine.Execute(cmd); err != nil {
		s.log.Warn("Unregister failed", "key", key.String(), "error", err)
	}
}

func (s *Server) logReadError(name string, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		s.log.Debug("Client disconnected", "name", name)
		return
	}
	s.log.Warn("Session closed", "name", name, "error", fmt.Errorf("%w: %w", errors.ErrTransport, err))
}
