package transport

import (
	"babble/contract"
	"babble/errors"
	"fmt"
	"net"
	"sync"
)

var _ contract.Endpoint = (*ConnEndpoint)(nil)

// ConnEndpoint is the write side of one TCP connection.
// A write failure closes the connection, which ends the session's read loop.
type ConnEndpoint struct {
	mu     sync.Mutex
	conn   net.Conn
	broken bool
}

func NewConnEndpoint(conn net.Conn) *ConnEndpoint {
	return &ConnEndpoint{conn: conn}
}

// Send writes every frame under the connection write lock.
func (e *ConnEndpoint) Send(frames ...[]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.broken {
		return fmt.Errorf("%w: connection already closed", errors.ErrTransport)
	}
	for _, frame := range frames {
		if _, err := e.conn.Write(frame); err != nil {
			e.broken = true
			_ = e.conn.Close()
			return fmt.Errorf("%w: %w", errors.ErrTransport, err)
		}
	}
	return nil
}
