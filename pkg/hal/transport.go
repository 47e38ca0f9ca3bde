package hal

import "time"

// Transport is the duplex byte channel a Session runs over. It carries no message boundaries of
// its own.
type Transport interface {
	// Write sends all of p.
	Write(p []byte) (int, error)

	// ReadTimeout reads up to len(p) bytes, blocking for at most timeout. When nothing arrives
	// in time it returns ErrTimeout (or an error wrapping os.ErrDeadlineExceeded).
	ReadTimeout(p []byte, timeout time.Duration) (int, error)
}

// Flusher is implemented by transports that can discard unread input. A Session flushes after a
// failed receive so a late or partial frame does not poison the next exchange.
type Flusher interface {
	Flush() error
}

// Observer is notified of every frame and failed exchange. Implementations must be fast; they
// run inline with the exchange.
type Observer interface {
	FrameSent(t MessageType, size int)
	FrameReceived(t MessageType, size int)
	ExchangeFailed(op string, err error)
}

type nopObserver struct{}

func (nopObserver) FrameSent(MessageType, int)     {}
func (nopObserver) FrameReceived(MessageType, int) {}
func (nopObserver) ExchangeFailed(string, error)   {}
