package hal

import (
	"errors"
	"fmt"
	"os"
)

var (
	ErrPayloadTooLarge  = errors.New("hal: payload too large")
	ErrMalformed        = errors.New("hal: malformed frame")
	ErrChecksumMismatch = errors.New("hal: checksum mismatch")
	ErrUnknownType      = errors.New("hal: unknown message type")
	ErrUnexpectedType   = errors.New("hal: unexpected message type")
	ErrBufferTooSmall   = errors.New("hal: buffer too small")
	ErrResultTooLarge   = errors.New("hal: result too large")

	// ErrTimeout is returned by transports when no data arrives within the read timeout.
	// Errors wrapping os.ErrDeadlineExceeded are treated the same way.
	ErrTimeout = errors.New("hal: timeout")
)

// TransportError wraps a failure reported by the underlying Transport.
type TransportError struct {
	// Op is "read" or "write"
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("hal: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func isTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded)
}

// ExceptionOf extracts the protocol exception code carried by err, if any.
func ExceptionOf(err error) (ExceptionCode, bool) {
	var code ExceptionCode
	if errors.As(err, &code) {
		return code, true
	}
	return ExcNone, false
}
