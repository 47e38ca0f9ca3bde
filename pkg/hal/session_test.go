package hal_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/seagrayinc/halproto/pkg/hal"
	"github.com/seagrayinc/halproto/pkg/hal/haltest"
)

func ackAll(req hal.Message) []hal.Message {
	return []hal.Message{haltest.Ack(req)}
}

func TestReferenceIDsIncrementAndWrap(t *testing.T) {
	dev := haltest.NewDevice(0, ackAll)
	s := hal.New(dev, 0)

	for i := 0; i < 300; i++ {
		if err := s.Sync(); err != nil {
			t.Fatalf("Sync() #%d error = %v", i, err)
		}
	}

	for i, req := range dev.Requests {
		if req.Ref != byte(i) {
			t.Fatalf("request %d carries ref %d, want %d", i, req.Ref, byte(i))
		}
	}
	if got, want := s.LastReferenceID(), byte(299%256); got != want {
		t.Errorf("LastReferenceID() = %d, want %d", got, want)
	}
}

func TestSendOversizedPayloadConsumesNoReference(t *testing.T) {
	dev := haltest.NewDevice(0, ackAll)
	s := hal.New(dev, 0)

	if err := s.Sync(); err != nil {
		t.Fatal(err)
	}
	before := s.LastReferenceID()

	err := s.Send(hal.TypeCmdLoad, make([]byte, hal.MaxPayload+1))
	if !errors.Is(err, hal.ErrPayloadTooLarge) {
		t.Fatalf("Send() error = %v, want ErrPayloadTooLarge", err)
	}
	if len(dev.Requests) != 1 {
		t.Errorf("%d frames written, want 1", len(dev.Requests))
	}
	if s.LastReferenceID() != before {
		t.Errorf("LastReferenceID() = %d, want %d", s.LastReferenceID(), before)
	}

	if err := s.Sync(); err != nil {
		t.Fatal(err)
	}
	if got := dev.Requests[1].Ref; got != before+1 {
		t.Errorf("next ref = %d, want %d", got, before+1)
	}
}

func TestReferenceMismatch(t *testing.T) {
	stale := true
	dev := haltest.NewDevice(0, func(req hal.Message) []hal.Message {
		ack := haltest.Ack(req)
		if stale {
			ack.Ref = req.Ref + 1
		}
		return []hal.Message{ack}
	})
	s := hal.New(dev, 0)

	err := s.Sync()
	if !errors.Is(err, hal.ExcMsgIDErr) {
		t.Fatalf("Sync() error = %v, want MSGID_ERR", err)
	}

	stale = false
	if err := s.Sync(); err != nil {
		t.Errorf("Sync() after mismatch error = %v", err)
	}
}

func TestReceiveTimeout(t *testing.T) {
	silent := true
	dev := haltest.NewDevice(0, func(req hal.Message) []hal.Message {
		if silent {
			return nil
		}
		return ackAll(req)
	})
	s := hal.New(dev, 0, hal.WithTimeout(20*time.Millisecond))

	start := time.Now()
	err := s.Sync()
	elapsed := time.Since(start)

	if !errors.Is(err, hal.ExcRxTimeout) || !errors.Is(err, hal.ErrTimeout) {
		t.Fatalf("Sync() error = %v, want RX_TIMEOUT", err)
	}
	if elapsed < 20*time.Millisecond {
		t.Errorf("gave up after %v", elapsed)
	}
	if dev.Flushes != 1 {
		t.Errorf("Flushes = %d, want 1", dev.Flushes)
	}

	silent = false
	if err := s.Sync(); err != nil {
		t.Errorf("Sync() after timeout error = %v", err)
	}
}

func TestDeviceException(t *testing.T) {
	dev := haltest.NewDevice(hal.FlagChecksum, func(req hal.Message) []hal.Message {
		return []hal.Message{haltest.Exception(req, hal.ExcJtagPasswordWrong)}
	})
	s := hal.New(dev, hal.FlagChecksum)

	_, err := s.Transact(hal.TypeCoreGetVcc, nil)
	if !errors.Is(err, hal.ErrUnexpectedType) {
		t.Errorf("error = %v, want ErrUnexpectedType", err)
	}
	code, ok := hal.ExceptionOf(err)
	if !ok || code != hal.ExcJtagPasswordWrong {
		t.Errorf("ExceptionOf() = %s, %v", code, ok)
	}
}

func TestShortExceptionIsUndefined(t *testing.T) {
	dev := haltest.NewDevice(0, func(req hal.Message) []hal.Message {
		return []hal.Message{{Type: hal.TypeException, Ref: req.Ref}}
	})
	s := hal.New(dev, 0)

	if err := s.Sync(); !errors.Is(err, hal.ExcUndefined) {
		t.Errorf("Sync() error = %v, want UNDEFINED", err)
	}
}

func TestReceiveBufferTooSmall(t *testing.T) {
	dev := haltest.NewDevice(0, func(req hal.Message) []hal.Message {
		return []hal.Message{haltest.Data(req, make([]byte, 10))}
	})
	s := hal.New(dev, 0)

	if err := s.Send(hal.TypeDcdcSubMcuVersion, nil); err != nil {
		t.Fatal(err)
	}
	_, err := s.Receive(make([]byte, 4))
	if !errors.Is(err, hal.ErrBufferTooSmall) || !errors.Is(err, hal.ExcRxTooSmallBuffer) {
		t.Errorf("Receive() error = %v, want RX_TO_SMALL_BUFFER", err)
	}
}

func TestReceiveCorruptFrame(t *testing.T) {
	dev := haltest.NewDevice(hal.FlagChecksum, nil)
	s := hal.New(dev, hal.FlagChecksum)

	if err := s.Send(hal.TypeCoreGetVcc, nil); err != nil {
		t.Fatal(err)
	}
	frame, err := hal.Encode(hal.FlagChecksum, hal.Message{
		Type:    hal.TypeData,
		Ref:     s.LastReferenceID(),
		Payload: []byte{0xe4, 0x0c},
	})
	if err != nil {
		t.Fatal(err)
	}
	frame[4] ^= 0x01
	dev.Inject(frame)

	_, err = s.Receive(make([]byte, hal.MaxPayload))
	if !errors.Is(err, hal.ExcCRCErr) || !errors.Is(err, hal.ErrChecksumMismatch) {
		t.Errorf("Receive() error = %v, want CRC_ERR", err)
	}
}

func TestTransact(t *testing.T) {
	dev := haltest.NewDevice(hal.FlagChecksum, func(req hal.Message) []hal.Message {
		return []hal.Message{haltest.Data(req, []byte{0xe4, 0x0c})}
	})
	s := hal.New(dev, hal.FlagChecksum)

	m, err := s.Transact(hal.TypeCoreGetVcc, nil)
	if err != nil {
		t.Fatalf("Transact() error = %v", err)
	}
	if m.Type != hal.TypeData || !bytes.Equal(m.Payload, []byte{0xe4, 0x0c}) {
		t.Errorf("Transact() = %+v", m)
	}
}

func TestTransactFullPayload(t *testing.T) {
	full := bytes.Repeat([]byte{0xc3}, hal.MaxPayload)
	dev := haltest.NewDevice(hal.FlagChecksum, func(req hal.Message) []hal.Message {
		return []hal.Message{haltest.Data(req, full)}
	})
	s := hal.New(dev, hal.FlagChecksum)

	m, err := s.Transact(hal.TypeCmdLoad, full)
	if err != nil {
		t.Fatalf("Transact() error = %v", err)
	}
	if !bytes.Equal(m.Payload, full) {
		t.Errorf("Transact() payload is %d bytes, want %d", len(m.Payload), len(full))
	}
	if !bytes.Equal(dev.Requests[0].Payload, full) {
		t.Errorf("request payload is %d bytes, want %d", len(dev.Requests[0].Payload), len(full))
	}
}

func TestWriteFailure(t *testing.T) {
	dev := haltest.NewDevice(0, ackAll)
	dev.WriteErr = errors.New("device unplugged")
	s := hal.New(dev, 0)

	err := s.Sync()
	var terr *hal.TransportError
	if !errors.As(err, &terr) || terr.Op != "write" {
		t.Fatalf("Sync() error = %v, want write TransportError", err)
	}
	if !errors.Is(err, dev.WriteErr) {
		t.Errorf("cause lost: %v", err)
	}
}

type countingObserver struct {
	sent, received int
	failed         []string
}

func (o *countingObserver) FrameSent(hal.MessageType, int)     { o.sent++ }
func (o *countingObserver) FrameReceived(hal.MessageType, int) { o.received++ }
func (o *countingObserver) ExchangeFailed(op string, err error) {
	o.failed = append(o.failed, op)
}

func TestObserver(t *testing.T) {
	ok := true
	dev := haltest.NewDevice(0, func(req hal.Message) []hal.Message {
		if ok {
			return ackAll(req)
		}
		return []hal.Message{haltest.Exception(req, hal.ExcNoCommand)}
	})
	obs := &countingObserver{}
	s := hal.New(dev, 0, hal.WithObserver(obs))

	if err := s.Sync(); err != nil {
		t.Fatal(err)
	}
	ok = false
	if err := s.Sync(); err == nil {
		t.Fatal("Sync() succeeded against an exception")
	}

	if obs.sent != 2 || obs.received != 2 {
		t.Errorf("sent %d received %d, want 2 and 2", obs.sent, obs.received)
	}
	if len(obs.failed) != 1 || obs.failed[0] != "receive" {
		t.Errorf("failed = %v", obs.failed)
	}
}

func TestFailuresRecordedOnce(t *testing.T) {
	tests := []struct {
		name  string
		reply func(req hal.Message) hal.Message
		run   func(s *hal.Session) error
		want  string
	}{
		{
			name:  "execute exception",
			reply: func(req hal.Message) hal.Message { return haltest.Exception(req, hal.ExcUnknownCommand) },
			run:   func(s *hal.Session) error { _, err := s.Execute(5, nil); return err },
			want:  "receive",
		},
		{
			name:  "execute reply without length",
			reply: func(req hal.Message) hal.Message { return haltest.Data(req, []byte{1}) },
			run:   func(s *hal.Session) error { _, err := s.Execute(5, nil); return err },
			want:  "execute",
		},
		{
			name:  "kill exception",
			reply: func(req hal.Message) hal.Message { return haltest.Exception(req, hal.ExcNoCommand) },
			run:   func(s *hal.Session) error { return s.Kill(5) },
			want:  "receive",
		},
		{
			name:  "sync answered with data",
			reply: func(req hal.Message) hal.Message { return haltest.Data(req, []byte{1, 2}) },
			run:   func(s *hal.Session) error { return s.Sync() },
			want:  "control",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := haltest.NewDevice(0, func(req hal.Message) []hal.Message {
				return []hal.Message{tt.reply(req)}
			})
			obs := &countingObserver{}
			s := hal.New(dev, 0, hal.WithObserver(obs))

			if err := tt.run(s); err == nil {
				t.Fatal("operation succeeded")
			}
			if len(obs.failed) != 1 || obs.failed[0] != tt.want {
				t.Errorf("failed = %v, want [%s]", obs.failed, tt.want)
			}
		})
	}
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dev := haltest.NewDevice(hal.FlagChecksum, ackAll)
	s := hal.New(dev, hal.FlagChecksum, hal.WithLogger(logger))
	if err := s.Sync(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"sending frame", "type=CMD_SYNC", "bytes=03-80-00-00-fc-7f", "received frame"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestNewPanicsWithoutTransport(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(nil) did not panic")
		}
	}()
	hal.New(nil, 0)
}
