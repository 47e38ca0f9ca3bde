package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/albenik/go-serial/v2"

	"github.com/seagrayinc/halproto/pkg/hal"
)

// Serial is a CDC ACM or UART link.
type Serial struct {
	port *serial.Port

	mu          sync.Mutex
	readTimeout time.Duration
}

// OpenSerial opens device at baud, 8N1.
func OpenSerial(device string, baud int) (*Serial, error) {
	p, err := serial.Open(device,
		serial.WithBaudrate(baud),
		serial.WithDataBits(8),
		serial.WithParity(serial.NoParity),
		serial.WithStopBits(serial.OneStopBit),
		serial.WithReadTimeout(int(hal.DefaultTimeout/time.Millisecond)),
	)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", device, err)
	}
	return &Serial{port: p, readTimeout: hal.DefaultTimeout}, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// ReadTimeout reads up to len(p) bytes. The port reports an expired timeout as a zero-length
// read, which is translated to hal.ErrTimeout.
func (s *Serial) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The port resolution is one millisecond; never ask it to block forever.
	timeout = max(timeout, time.Millisecond)
	if timeout != s.readTimeout {
		if err := s.port.SetReadTimeout(int(timeout / time.Millisecond)); err != nil {
			return 0, err
		}
		s.readTimeout = timeout
	}

	n, err := s.port.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, hal.ErrTimeout
	}
	return n, nil
}

func (s *Serial) Flush() error {
	return s.port.ResetInputBuffer()
}

func (s *Serial) Close() error {
	return s.port.Close()
}
