package transport

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeUSB struct {
	mu      sync.Mutex
	packets [][]byte
	in      chan []byte
	readErr error
	closed  chan struct{}
}

func newFakeUSB() *fakeUSB {
	return &fakeUSB{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeUSB) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packets = append(f.packets, bytes.Clone(b))
	return len(b), nil
}

func (f *fakeUSB) Read(b []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	select {
	case p := <-f.in:
		return copy(b, p), nil
	case <-f.closed:
		return 0, errors.New("closed")
	}
}

func (f *fakeUSB) Close() error {
	close(f.closed)
	return nil
}

func TestUSBWritePackets(t *testing.T) {
	f := newFakeUSB()
	u := newUSB(f)
	defer u.Close()

	n, err := u.Write(make([]byte, 150))
	if err != nil || n != 150 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.packets) != 3 || len(f.packets[2]) != 150-2*usbPacketSize {
		t.Errorf("wrote %d packets", len(f.packets))
	}
}

func TestUSBReadAndFlush(t *testing.T) {
	f := newFakeUSB()
	u := newUSB(f)
	defer u.Close()

	f.in <- []byte{0x03, 0x91, 0x00, 0x00}

	buf := make([]byte, 8)
	n, err := u.ReadTimeout(buf, time.Second)
	if err != nil || n != 4 {
		t.Fatalf("ReadTimeout() = %d, %v", n, err)
	}

	f.in <- []byte{0xde, 0xad}
	time.Sleep(20 * time.Millisecond)
	if err := u.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := u.ReadTimeout(buf, 10*time.Millisecond); err == nil {
		t.Error("stale bytes survived Flush")
	}
}

func TestUSBReadFailures(t *testing.T) {
	f := newFakeUSB()
	f.readErr = errors.New("LIBUSB_ERROR_NO_DEVICE")
	u := newUSB(f)
	defer u.Close()

	_, err := u.ReadTimeout(make([]byte, 1), time.Second)
	if !errors.Is(err, f.readErr) {
		t.Errorf("ReadTimeout() error = %v, want %v", err, f.readErr)
	}
}
