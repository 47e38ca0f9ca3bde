package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// TCP reaches an adapter through a serial-over-network bridge.
type TCP struct {
	conn net.Conn
}

// DialTCP connects to addr. A zero timeout leaves the bound to ctx.
func DialTCP(ctx context.Context, addr string, timeout time.Duration) (*TCP, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return NewTCP(conn), nil
}

// NewTCP wraps an established connection.
func NewTCP(conn net.Conn) *TCP {
	return &TCP{conn: conn}
}

func (t *TCP) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

// ReadTimeout returns an error wrapping os.ErrDeadlineExceeded when nothing arrives in time.
func (t *TCP) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	return t.conn.Read(p)
}

// Flush discards whatever input is already queued on the connection.
func (t *TCP) Flush() error {
	var buf [256]byte
	for {
		if err := t.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return err
		}
		if _, err := t.conn.Read(buf[:]); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

func (t *TCP) Close() error {
	return t.conn.Close()
}
