//go:build !windows

package hid

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	usbhid "rafaelmartins.com/p/usbhid"
)

type usbManager struct{}

func newManager() (Manager, error) { return &usbManager{}, nil }

func (m *usbManager) List() ([]Info, error) {
	devs, err := usbhid.Enumerate(nil)
	if err != nil {
		return nil, fmt.Errorf("hid: enumerate: %w", err)
	}
	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		out = append(out, Info{
			Path:         d.Path(),
			VendorID:     d.VendorId(),
			ProductID:    d.ProductId(),
			Product:      d.Product(),
			Manufacturer: d.Manufacturer(),
		})
	}
	return out, nil
}

func (m *usbManager) Open(info Info) (Device, error) {
	return m.get(func(dev *usbhid.Device) bool {
		return dev.Path() == info.Path
	})
}

func (m *usbManager) OpenVIDPID(vendorID, productID uint16) (Device, error) {
	return m.get(func(dev *usbhid.Device) bool {
		return dev.VendorId() == vendorID && dev.ProductId() == productID
	})
}

func (m *usbManager) get(match func(*usbhid.Device) bool) (Device, error) {
	d, err := usbhid.Get(match, true, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return &usbDevice{d: d}, nil
}

type usbDevice struct {
	d         *usbhid.Device
	closeOnce sync.Once
	closeErr  error
}

func (d *usbDevice) WriteReport(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.d.SetOutputReport(r.ID, r.Data); err != nil {
		return fmt.Errorf("hid: set output report: %w", err)
	}
	return nil
}

func (d *usbDevice) PollReports(ctx context.Context) <-chan Report {
	out := make(chan Report)

	go func() {
		<-ctx.Done()
		_ = d.Close()
	}()

	go func() {
		defer close(out)
		for {
			id, buf, err := d.d.GetInputReport()
			if err != nil {
				if ctx.Err() == nil {
					slog.Info("reading report failed", slog.Any("error", err))
				}
				return
			}

			select {
			case out <- Report{ID: id, Data: append([]byte(nil), buf...)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (d *usbDevice) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.d.Close()
	})
	return d.closeErr
}
