package hal

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Message is one decoded frame.
type Message struct {
	Type MessageType
	Ref  byte
	Seq  byte

	// Payload aliases the buffer the message was decoded from or copied into.
	Payload []byte
}

// Encode builds the wire form of m.
//
// Layout: [3+n][type][ref][seq][payload n], one zero pad byte if that is odd in length, and, when
// FlagChecksum is set, a 16-bit checksum (low byte first). The length byte is taken modulo 256,
// so a full MaxPayload frame carries 0 there.
func Encode(flags Flags, m Message) ([]byte, error) {
	return AppendFrame(make([]byte, 0, FrameSize(flags, len(m.Payload))), flags, m)
}

// AppendFrame appends the wire form of m to dst.
func AppendFrame(dst []byte, flags Flags, m Message) ([]byte, error) {
	if len(m.Payload) > MaxPayload {
		return dst, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(m.Payload), MaxPayload)
	}

	start := len(dst)
	dst = append(dst, byte(len(m.Payload)+3), byte(m.Type), m.Ref, m.Seq)
	dst = append(dst, m.Payload...)
	if (len(dst)-start)&1 != 0 {
		dst = append(dst, 0)
	}

	if flags.Checksum() {
		lo, hi := Checksum(dst[start:])
		dst = append(dst, lo, hi)
	}
	return dst, nil
}

// FrameSize returns the number of wire bytes a frame with an n-byte payload occupies.
func FrameSize(flags Flags, n int) int {
	size := headerLen + n
	if size&1 != 0 {
		size++
	}
	if flags.Checksum() {
		size += checksumLen
	}
	return size
}

// Decode parses exactly one frame from b. The returned payload aliases b.
//
// With FlagChecksum set the checksum is verified over the whole buffer first, so corruption of
// any byte, the length byte included, reports ErrChecksumMismatch.
func Decode(flags Flags, b []byte) (Message, error) {
	if flags.Checksum() {
		if len(b) < headerLen+checksumLen || len(b)&1 != 0 {
			return Message{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
		}
		body := b[:len(b)-checksumLen]
		lo, hi := Checksum(body)
		if lo != b[len(b)-2] || hi != b[len(b)-1] {
			return Message{}, fmt.Errorf("%w: got %02x%02x, computed %02x%02x",
				ErrChecksumMismatch, b[len(b)-1], b[len(b)-2], hi, lo)
		}
	}

	if len(b) < headerLen {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}

	declared := lengthField(b[0])
	if declared < 3 || declared-3 > MaxPayload {
		return Message{}, fmt.Errorf("%w: length byte %d", ErrMalformed, declared)
	}

	n := declared - 3
	if want := FrameSize(flags, n); len(b) != want {
		return Message{}, fmt.Errorf("%w: length byte %d needs %d bytes, have %d", ErrMalformed, declared, want, len(b))
	}

	m := Message{
		Type:    MessageType(b[1]),
		Ref:     b[2],
		Seq:     b[3],
		Payload: b[headerLen : headerLen+n],
	}
	if !m.Type.Valid() {
		return Message{}, fmt.Errorf("%w: 0x%02x", ErrUnknownType, b[1])
	}
	return m, nil
}

// lengthField decodes the length byte. Zero stands for 256, the length of a MaxPayload frame.
func lengthField(b byte) int {
	if b == 0 {
		return 256
	}
	return int(b)
}

// Checksum computes the frame checksum over b, which must have even length: each byte lane of
// the little-endian 16-bit words is XORed and inverted.
func Checksum(b []byte) (lo, hi byte) {
	lo, hi = 0xff, 0xff
	for i := 0; i+1 < len(b); i += 2 {
		lo ^= b[i]
		hi ^= b[i+1]
	}
	return lo, hi
}

// EncodeFrameToString renders b as dash-separated hex, the format used in debug logs.
func EncodeFrameToString(b []byte) string {
	hexDigits := hex.EncodeToString(b)
	var builder strings.Builder
	for i, r := range hexDigits {
		switch {
		case i > 0 && i%2 == 0:
			builder.WriteString("-")
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
