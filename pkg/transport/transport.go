// Package transport provides hal.Transport implementations for the links a debug adapter is
// reachable over: a CDC serial port, raw USB bulk endpoints, HID reports and TCP bridges.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/seagrayinc/halproto/pkg/hal"
)

// Kind names a link type.
type Kind string

const (
	KindSerial Kind = "serial"
	KindUSB    Kind = "usb"
	KindHID    Kind = "hid"
	KindTCP    Kind = "tcp"
)

const (
	// TI's USB vendor ID and the MSP-FET product ID.
	DefaultVendorID  uint16 = 0x2047
	DefaultProductID uint16 = 0x0010

	DefaultBaudRate = 460800
)

// Port is an open link. Every Port can discard pending input.
type Port interface {
	hal.Transport
	hal.Flusher
	io.Closer
}

// Config selects and parameterizes a link.
type Config struct {
	Kind Kind

	// Device is the serial device path, the HID device path, or the TCP address.
	Device   string
	BaudRate int

	VendorID  uint16
	ProductID uint16

	// DialTimeout bounds TCP connection setup.
	DialTimeout time.Duration
}

// Open opens the link described by cfg. Zero-valued fields take package defaults.
func Open(ctx context.Context, cfg Config) (Port, error) {
	if cfg.VendorID == 0 {
		cfg.VendorID = DefaultVendorID
	}
	if cfg.ProductID == 0 {
		cfg.ProductID = DefaultProductID
	}

	switch cfg.Kind {
	case KindSerial:
		if cfg.BaudRate == 0 {
			cfg.BaudRate = DefaultBaudRate
		}
		return asPort(OpenSerial(cfg.Device, cfg.BaudRate))
	case KindUSB:
		return asPort(OpenUSB(cfg.VendorID, cfg.ProductID))
	case KindHID:
		return asPort(OpenHID(ctx, cfg.Device, cfg.VendorID, cfg.ProductID))
	case KindTCP:
		return asPort(DialTCP(ctx, cfg.Device, cfg.DialTimeout))
	case "":
		return nil, errors.New("transport: no link kind configured")
	default:
		return nil, fmt.Errorf("transport: unknown link kind %q", cfg.Kind)
	}
}

// asPort keeps a failed open from returning a non-nil Port holding a nil pointer.
func asPort[P Port](p P, err error) (Port, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
