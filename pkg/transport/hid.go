package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seagrayinc/halproto/pkg/hid"
)

const (
	// hidReportID tags the adapter's byte-pipe reports. The first data byte of each report is
	// the number of valid bytes that follow.
	hidReportID = 0x3f

	hidReportLen = 63
	hidChunk     = hidReportLen - 1
)

var errReportsClosed = errors.New("report stream closed")

// HID carries the byte stream inside fixed-size HID reports.
type HID struct {
	dev    hid.Device
	in     *pump
	cancel context.CancelFunc
}

// OpenHID opens the adapter's HID interface. A non-empty path selects the device directly;
// otherwise the first device matching vendorID and productID is used.
func OpenHID(ctx context.Context, path string, vendorID, productID uint16) (*HID, error) {
	m, err := hid.NewManager()
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	var dev hid.Device
	if path != "" {
		dev, err = m.Open(hid.Info{Path: path})
	} else {
		dev, err = m.OpenVIDPID(vendorID, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("transport: open hid %04x:%04x: %w", vendorID, productID, err)
	}
	return NewHID(ctx, dev), nil
}

// NewHID starts reading reports from dev. The HID owns dev and closes it on Close or when ctx
// is done.
func NewHID(ctx context.Context, dev hid.Device) *HID {
	ctx, cancel := context.WithCancel(ctx)
	h := &HID{
		dev:    dev,
		in:     newPump(),
		cancel: cancel,
	}

	reports := dev.PollReports(ctx)
	go func() {
		for r := range reports {
			if r.ID != hidReportID || len(r.Data) == 0 {
				continue
			}
			n := min(int(r.Data[0]), len(r.Data)-1)
			h.in.push(r.Data[1 : 1+n])
		}
		cause := context.Cause(ctx)
		if cause == nil {
			cause = errReportsClosed
		}
		h.in.fail(fmt.Errorf("transport: hid: %w", cause))
	}()
	return h
}

func (h *HID) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		end := min(written+hidChunk, len(p))

		data := make([]byte, hidReportLen)
		data[0] = byte(end - written)
		copy(data[1:], p[written:end])

		if err := h.dev.WriteReport(context.Background(), hid.Report{ID: hidReportID, Data: data}); err != nil {
			return written, fmt.Errorf("transport: hid write: %w", err)
		}
		written = end
	}
	return written, nil
}

func (h *HID) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	return h.in.read(p, timeout)
}

func (h *HID) Flush() error {
	h.in.reset()
	return nil
}

func (h *HID) Close() error {
	h.cancel()
	return h.dev.Close()
}
