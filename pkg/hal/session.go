package hal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Session is one protocol conversation over a Transport. It is not safe for concurrent use: it
// tracks exactly one outstanding request at a time.
type Session struct {
	t     Transport
	flags Flags
	cfg   config

	ref     byte // next reference id to issue
	lastRef byte // reference id the next response must echo

	tx      []byte
	rx      [maxFrameLen]byte
	scratch [MaxPayload]byte

	// payload holds the reassembled result of the last Execute.
	payload []byte

	// reported is set once the current operation's failure has reached the observer.
	reported bool
}

// New binds a Session to t. It performs no I/O. The session does not own the transport's
// lifetime; closing it is left to the caller.
func New(t Transport, flags Flags, opts ...Option) *Session {
	if t == nil {
		panic("hal: transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		t:       t,
		flags:   flags,
		cfg:     cfg,
		tx:      make([]byte, 0, maxFrameLen),
		payload: make([]byte, 0, PayloadCapacity),
	}
}

func (s *Session) Flags() Flags {
	return s.flags
}

// NextReferenceID issues the next 8-bit reference id, wrapping from 255 to 0. Responses are only
// accepted if they echo the most recently issued id.
func (s *Session) NextReferenceID() byte {
	id := s.ref
	s.ref++
	s.lastRef = id
	return id
}

// LastReferenceID returns the most recently issued reference id.
func (s *Session) LastReferenceID() byte {
	return s.lastRef
}

// Send writes a single frame of type t. Payloads over MaxPayload are rejected; Execute
// fragments larger argument blocks itself.
func (s *Session) Send(t MessageType, payload []byte) error {
	return s.send(t, 0, payload)
}

func (s *Session) send(t MessageType, seq byte, payload []byte) error {
	if len(payload) > MaxPayload {
		err := fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayload)
		s.fail("send", err)
		return err
	}

	ref := s.NextReferenceID()
	frame, err := AppendFrame(s.tx[:0], s.flags, Message{Type: t, Ref: ref, Seq: seq, Payload: payload})
	if err != nil {
		s.fail("send", err)
		return err
	}
	s.tx = frame

	if s.cfg.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.cfg.logger.Debug("sending frame",
			slog.String("type", t.String()),
			slog.Int("ref", int(ref)),
			slog.Int("seq", int(seq)),
			slog.String("bytes", EncodeFrameToString(frame)),
		)
	}

	if _, err := s.t.Write(frame); err != nil {
		var werr error = &TransportError{Op: "write", Err: err}
		if isTimeout(err) {
			werr = fmt.Errorf("%w: %w", ExcTxTimeout, werr)
		}
		s.fail("send", werr)
		return werr
	}

	s.cfg.observer.FrameSent(t, len(frame))
	return nil
}

// Receive reads one frame, waiting at most the session timeout, and copies its payload into buf.
// The returned Message's Payload is buf[:n].
//
// A response that does not echo the last issued reference id fails with ExcMsgIDErr. An
// EXCEPTION frame fails with the device's ExceptionCode, wrapped with ErrUnexpectedType. After
// any failure the session is ready for the next Send.
func (s *Session) Receive(buf []byte) (Message, error) {
	m, err := s.receive(buf)
	if err != nil {
		s.fail("receive", err)
		s.flush()
	}
	return m, err
}

func (s *Session) receive(buf []byte) (Message, error) {
	deadline := time.Now().Add(s.cfg.timeout)

	if err := s.readFull(s.rx[:1], deadline); err != nil {
		return Message{}, err
	}

	declared := lengthField(s.rx[0])
	if declared < 3 || declared-3 > MaxPayload {
		return Message{}, fmt.Errorf("%w: length byte %d", ErrMalformed, declared)
	}

	size := FrameSize(s.flags, declared-3)
	if err := s.readFull(s.rx[1:size], deadline); err != nil {
		return Message{}, err
	}

	raw := s.rx[:size]
	if s.cfg.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.cfg.logger.Debug("received frame", slog.String("bytes", EncodeFrameToString(raw)))
	}

	m, err := Decode(s.flags, raw)
	if err != nil {
		if errors.Is(err, ErrChecksumMismatch) {
			err = fmt.Errorf("%w: %w", ExcCRCErr, err)
		}
		return Message{}, err
	}
	s.cfg.observer.FrameReceived(m.Type, size)

	payload := m.Payload
	m.Payload = nil

	if m.Ref != s.lastRef {
		return m, fmt.Errorf("%w: %s carries reference %d, want %d", ExcMsgIDErr, m.Type, m.Ref, s.lastRef)
	}

	if m.Type == TypeException {
		code := ExcUndefined
		if len(payload) >= 2 {
			code = ExceptionCode(binary.LittleEndian.Uint16(payload))
		}
		return m, fmt.Errorf("%w %s: %w", ErrUnexpectedType, m.Type, code)
	}

	if len(payload) > len(buf) {
		return m, fmt.Errorf("%w: %w: payload is %d bytes, buffer %d",
			ExcRxTooSmallBuffer, ErrBufferTooSmall, len(payload), len(buf))
	}

	n := copy(buf, payload)
	m.Payload = buf[:n]
	return m, nil
}

func (s *Session) readFull(p []byte, deadline time.Time) error {
	for len(p) > 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: %w", ExcRxTimeout, ErrTimeout)
		}

		n, err := s.t.ReadTimeout(p, remaining)
		p = p[n:]
		if err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w: %w", ExcRxTimeout, err)
			}
			return &TransportError{Op: "read", Err: err}
		}
	}
	return nil
}

// Transact sends one request and returns its correlated response. The response payload is only
// valid until the next call on s.
func (s *Session) Transact(t MessageType, payload []byte) (Message, error) {
	if err := s.Send(t, payload); err != nil {
		return Message{}, err
	}
	return s.Receive(s.scratch[:])
}

// begin marks the start of a multi-frame operation.
func (s *Session) begin() {
	s.reported = false
}

// finish records err under op unless a send or receive inside the operation already did.
func (s *Session) finish(op string, err error) error {
	if err != nil && !s.reported {
		s.fail(op, err)
	}
	return err
}

func (s *Session) flush() {
	f, ok := s.t.(Flusher)
	if !ok {
		return
	}
	if err := f.Flush(); err != nil {
		s.cfg.logger.Debug("flushing transport failed", slog.Any("error", err))
	}
}

func (s *Session) fail(op string, err error) {
	s.reported = true
	s.cfg.observer.ExchangeFailed(op, err)
	s.cfg.logger.Debug("exchange failed", slog.String("op", op), slog.Any("error", err))
}
