// Package hid is a small report-oriented view of USB HID devices, enough to carry a byte
// protocol over interrupt reports.
package hid

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no attached device matches an Open request.
var ErrNotFound = errors.New("hid: device not found")

// Report represents an individual report. Data holds everything after the report ID.
type Report struct {
	ID   byte
	Data []byte
}

// Bytes returns the report with its ID prepended, the form most OS interfaces expect.
func (r Report) Bytes() []byte {
	b := make([]byte, len(r.Data)+1)
	b[0] = r.ID
	copy(b[1:], r.Data)
	return b
}

// Device represents an opened HID device capable of report I/O.
type Device interface {
	WriteReport(ctx context.Context, r Report) error

	// PollReports starts reading input reports until ctx is done or the device fails. The
	// returned channel is closed when reading stops. It must be called at most once.
	PollReports(ctx context.Context) <-chan Report

	Close() error
}

// Info represents a HID device descriptor.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Product      string
	Manufacturer string
}

// Manager enumerates and opens HID devices.
type Manager interface {
	List() ([]Info, error)
	Open(info Info) (Device, error)
	OpenVIDPID(vendorID, productID uint16) (Device, error)
}

// NewManager returns the OS-specific HID manager.
func NewManager() (Manager, error) {
	return newManager()
}

// openMatching opens the first listed device accepted by match.
func openMatching(m Manager, match func(Info) bool) (Device, error) {
	devs, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, d := range devs {
		if match(d) {
			return m.Open(d)
		}
	}
	return nil, ErrNotFound
}
