// Package haltest provides in-memory devices for exercising hal.Session without hardware.
package haltest

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/seagrayinc/halproto/pkg/hal"
)

// Handler computes the device's replies to one decoded request.
type Handler func(req hal.Message) []hal.Message

// Device is a scripted hal.Transport. Every Write must carry exactly one frame; it is decoded,
// recorded and handed to the Handler, whose replies are queued for reading.
type Device struct {
	Flags   hal.Flags
	Handler Handler

	// Requests holds every decoded request, payloads copied.
	Requests []hal.Message

	// WriteErr, when set, fails every Write.
	WriteErr error

	// Flushes counts Flush calls.
	Flushes int

	out bytes.Buffer
}

func NewDevice(flags hal.Flags, h Handler) *Device {
	return &Device{
		Flags:   flags,
		Handler: h,
	}
}

func (d *Device) Write(p []byte) (int, error) {
	if d.WriteErr != nil {
		return 0, d.WriteErr
	}

	m, err := hal.Decode(d.Flags, p)
	if err != nil {
		return 0, err
	}
	m.Payload = bytes.Clone(m.Payload)
	d.Requests = append(d.Requests, m)

	if d.Handler != nil {
		for _, r := range d.Handler(m) {
			d.Reply(r)
		}
	}
	return len(p), nil
}

// ReadTimeout returns queued reply bytes. With nothing queued it waits out the timeout, like a
// silent device would.
func (d *Device) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	if d.out.Len() == 0 {
		time.Sleep(timeout)
		return 0, hal.ErrTimeout
	}
	return d.out.Read(p)
}

func (d *Device) Flush() error {
	d.Flushes++
	d.out.Reset()
	return nil
}

// Reply queues r for the host.
func (d *Device) Reply(r hal.Message) {
	b, err := hal.Encode(d.Flags, r)
	if err != nil {
		panic(err)
	}
	d.out.Write(b)
}

// Inject queues raw bytes for the host, bypassing the encoder.
func (d *Device) Inject(b []byte) {
	d.out.Write(b)
}

// RequestsOf returns the recorded requests of type t.
func (d *Device) RequestsOf(t hal.MessageType) []hal.Message {
	var out []hal.Message
	for _, r := range d.Requests {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// Ack answers req with an ACKNOWLEDGE.
func Ack(req hal.Message) hal.Message {
	return hal.Message{Type: hal.TypeAcknowledge, Ref: req.Ref, Seq: req.Seq}
}

// Exception answers req with an EXCEPTION carrying code.
func Exception(req hal.Message, code hal.ExceptionCode) hal.Message {
	payload := binary.LittleEndian.AppendUint16(nil, uint16(code))
	return hal.Message{Type: hal.TypeException, Ref: req.Ref, Seq: req.Seq, Payload: payload}
}

// Data answers req with a DATA frame.
func Data(req hal.Message, payload []byte) hal.Message {
	return hal.Message{Type: hal.TypeData, Ref: req.Ref, Seq: req.Seq, Payload: payload}
}

// Status answers req with a STATUS frame.
func Status(req hal.Message, payload []byte) hal.Message {
	return hal.Message{Type: hal.TypeStatus, Ref: req.Ref, Seq: req.Seq, Payload: payload}
}
