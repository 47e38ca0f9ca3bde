package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/seagrayinc/halproto/pkg/hal"
)

func TestPumpRead(t *testing.T) {
	p := newPump()
	p.push([]byte{1, 2, 3})
	p.push([]byte{4})

	buf := make([]byte, 3)
	n, err := p.read(buf, time.Second)
	if err != nil || n != 3 {
		t.Fatalf("read() = %d, %v", n, err)
	}
	n, err = p.read(buf, time.Second)
	if err != nil || n != 1 || buf[0] != 4 {
		t.Fatalf("read() = %d, %v", n, err)
	}
}

func TestPumpTimeout(t *testing.T) {
	p := newPump()

	start := time.Now()
	_, err := p.read(make([]byte, 1), 20*time.Millisecond)
	if !errors.Is(err, hal.ErrTimeout) {
		t.Fatalf("read() error = %v, want ErrTimeout", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("read() returned before the timeout")
	}
}

func TestPumpWakesBlockedReader(t *testing.T) {
	p := newPump()
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.push([]byte{0x91})
	}()

	buf := make([]byte, 4)
	n, err := p.read(buf, time.Second)
	if err != nil || n != 1 || buf[0] != 0x91 {
		t.Errorf("read() = %d, %v", n, err)
	}
}

func TestPumpFailAfterDrain(t *testing.T) {
	p := newPump()
	boom := errors.New("unplugged")
	p.push([]byte{7})
	p.fail(boom)

	buf := make([]byte, 4)
	if n, err := p.read(buf, time.Second); n != 1 || err != nil {
		t.Fatalf("read() = %d, %v, want buffered byte first", n, err)
	}
	if _, err := p.read(buf, time.Second); !errors.Is(err, boom) {
		t.Errorf("read() error = %v, want %v", err, boom)
	}
}

func TestPumpReset(t *testing.T) {
	p := newPump()
	p.push([]byte{1, 2})
	p.reset()
	if _, err := p.read(make([]byte, 2), 5*time.Millisecond); !errors.Is(err, hal.ErrTimeout) {
		t.Errorf("read() after reset error = %v", err)
	}
}
