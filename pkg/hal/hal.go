// Package hal implements the HAL message protocol spoken between a debug adapter host and the
// adapter's target-facing co-processor.
//
// A Session wraps a byte Transport. Send and Receive exchange single frames; Execute runs a remote
// function, uploading its arguments and collecting its result across as many frames as needed.
// A Session handles one exchange at a time and must not be shared between goroutines.
package hal

const (
	// MaxPayload is the largest payload a single frame can carry.
	MaxPayload = 253

	// PayloadCapacity bounds the logical payload of one Execute call, in both directions.
	PayloadCapacity = 4096

	headerLen   = 4 // length, type, reference, sequence
	checksumLen = 2
	maxFrameLen = headerLen + MaxPayload + 1 + checksumLen
)

// Flags select optional protocol features. They are fixed for the lifetime of a Session.
type Flags byte

const (
	// FlagChecksum appends a 16-bit checksum to every frame and validates it on receive.
	FlagChecksum Flags = 0x01
)

func (f Flags) Checksum() bool {
	return f&FlagChecksum != 0
}
