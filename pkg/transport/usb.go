package transport

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/usb"
)

const (
	usbPacketSize   = 64
	maxReadFailures = 5
)

// USB talks to the adapter over raw bulk endpoints. Incoming packets are read by a background
// goroutine so ReadTimeout can honour timeouts the driver does not expose.
type USB struct {
	dev  usb.Device
	in   *pump
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// OpenUSB opens the first attached device matching vendorID and productID.
func OpenUSB(vendorID, productID uint16) (*USB, error) {
	infos, err := usb.Enumerate(vendorID, productID)
	if err != nil {
		return nil, fmt.Errorf("transport: usb enumerate: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("transport: no USB device %04x:%04x attached", vendorID, productID)
	}

	dev, err := infos[0].Open()
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", infos[0].Path, err)
	}
	return newUSB(dev), nil
}

func newUSB(dev usb.Device) *USB {
	u := &USB{
		dev:  dev,
		in:   newPump(),
		done: make(chan struct{}),
	}
	go u.readLoop()
	return u
}

func (u *USB) readLoop() {
	buf := make([]byte, usbPacketSize)
	failures := 0
	for {
		n, err := u.dev.Read(buf)
		select {
		case <-u.done:
			return
		default:
		}

		if err != nil {
			failures++
			slog.Debug("usb read failed", slog.Int("failures", failures), slog.Any("error", err))
			if failures >= maxReadFailures {
				u.in.fail(fmt.Errorf("transport: usb read: %w", err))
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		failures = 0
		if n > 0 {
			u.in.push(buf[:n])
		}
	}
}

func (u *USB) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		end := min(written+usbPacketSize, len(p))
		n, err := u.dev.Write(p[written:end])
		written += n
		if err != nil {
			return written, fmt.Errorf("transport: usb write: %w", err)
		}
		if n == 0 {
			return written, fmt.Errorf("transport: usb write: %w", io.ErrShortWrite)
		}
	}
	return written, nil
}

func (u *USB) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	return u.in.read(p, timeout)
}

func (u *USB) Flush() error {
	u.in.reset()
	return nil
}

func (u *USB) Close() error {
	u.closeOnce.Do(func() {
		close(u.done)
		u.closeErr = u.dev.Close()
	})
	return u.closeErr
}
