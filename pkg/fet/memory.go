package fet

import (
	"encoding/binary"
	"fmt"

	"github.com/seagrayinc/halproto/pkg/hal"
)

// memArgsLen is the address and length header leading every memory function's arguments.
const memArgsLen = 8

func memArgs(addr uint32, n int) []byte {
	b := binary.LittleEndian.AppendUint32(make([]byte, 0, memArgsLen), addr)
	return binary.LittleEndian.AppendUint32(b, uint32(n))
}

// ReadMemory reads n bytes of target memory starting at addr. Reads longer than one result block
// are split.
func (f *FET) ReadMemory(addr uint32, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("fet: negative read length %d", n)
	}

	out := make([]byte, 0, n)
	for len(out) < n {
		chunk := min(n-len(out), hal.PayloadCapacity)
		at := addr + uint32(len(out))

		res, err := f.exec(f.functions.ReadMemBytes, memArgs(at, chunk))
		if err != nil {
			return nil, fmt.Errorf("fet: read 0x%05x+%d: %w", at, chunk, err)
		}
		if len(res.Data) != chunk {
			return nil, fmt.Errorf("fet: read 0x%05x+%d: %w: got %d bytes", at, chunk, hal.ExcRxLength, len(res.Data))
		}
		out = append(out, res.Data...)
	}
	return out, nil
}

// WriteMemory writes data to target memory starting at addr.
func (f *FET) WriteMemory(addr uint32, data []byte) error {
	const maxChunk = hal.PayloadCapacity - memArgsLen

	for off := 0; off < len(data); off += maxChunk {
		chunk := data[off:min(off+maxChunk, len(data))]
		at := addr + uint32(off)

		args := append(memArgs(at, len(chunk)), chunk...)
		if _, err := f.exec(f.functions.WriteMemBytes, args); err != nil {
			return fmt.Errorf("fet: write 0x%05x+%d: %w", at, len(chunk), err)
		}
	}
	return nil
}

// Init prepares the adapter's HAL for a debug session.
func (f *FET) Init() error {
	_, err := f.exec(f.functions.Init, nil)
	return err
}

// StartJtag connects to the target using protocol and returns the number of devices found on the
// chain.
func (f *FET) StartJtag(protocol byte) (int, error) {
	res, err := f.exec(f.functions.StartJtag, []byte{protocol})
	if err != nil {
		return 0, fmt.Errorf("fet: start jtag: %w", err)
	}
	if len(res.Data) < 1 {
		return 0, fmt.Errorf("fet: start jtag: %w: no device count", hal.ErrMalformed)
	}
	return int(res.Data[0]), nil
}

func (f *FET) StopJtag() error {
	_, err := f.exec(f.functions.StopJtag, nil)
	return err
}

// ExecuteFunclet runs a funclet already loaded on the target. args is passed through unchanged.
func (f *FET) ExecuteFunclet(args []byte) (hal.Result, error) {
	return f.Execute(f.functions.ExecuteFunclet, args)
}

// Execute runs an arbitrary HAL function. The returned data is owned by the caller.
func (f *FET) Execute(fid hal.FunctionID, args []byte) (hal.Result, error) {
	return f.exec(fid, args)
}

// JtagID returns the JTAG identification byte of the connected target.
func (f *FET) JtagID() (byte, error) {
	res, err := f.exec(f.functions.GetJtagID, nil)
	if err != nil {
		return 0, fmt.Errorf("fet: jtag id: %w", err)
	}
	if len(res.Data) < 1 {
		return 0, fmt.Errorf("fet: jtag id: %w: empty reply", hal.ErrMalformed)
	}
	return res.Data[0], nil
}

// ReadWords reads n 16-bit words starting at addr, which must be even. The length argument
// counts words.
func (f *FET) ReadWords(addr uint32, n int) ([]uint16, error) {
	if addr&1 != 0 || n < 0 {
		return nil, fmt.Errorf("fet: read words 0x%05x+%d: unaligned or negative", addr, n)
	}

	const maxWords = hal.PayloadCapacity / 2
	out := make([]uint16, 0, n)
	for len(out) < n {
		count := min(n-len(out), maxWords)
		at := addr + uint32(2*len(out))

		res, err := f.exec(f.functions.ReadMemWords, memArgs(at, count))
		if err != nil {
			return nil, fmt.Errorf("fet: read words 0x%05x+%d: %w", at, count, err)
		}
		if len(res.Data) != 2*count {
			return nil, fmt.Errorf("fet: read words 0x%05x+%d: %w: got %d bytes", at, count, hal.ExcRxLength, len(res.Data))
		}
		for i := 0; i < len(res.Data); i += 2 {
			out = append(out, binary.LittleEndian.Uint16(res.Data[i:]))
		}
	}
	return out, nil
}

// WriteWords writes words starting at addr, which must be even.
func (f *FET) WriteWords(addr uint32, words []uint16) error {
	if addr&1 != 0 {
		return fmt.Errorf("fet: write words 0x%05x: unaligned address", addr)
	}

	const maxWords = (hal.PayloadCapacity - memArgsLen) / 2
	for off := 0; off < len(words); off += maxWords {
		chunk := words[off:min(off+maxWords, len(words))]
		at := addr + uint32(2*off)

		args := memArgs(at, len(chunk))
		for _, w := range chunk {
			args = binary.LittleEndian.AppendUint16(args, w)
		}
		if _, err := f.exec(f.functions.WriteMemWords, args); err != nil {
			return fmt.Errorf("fet: write words 0x%05x+%d: %w", at, len(chunk), err)
		}
	}
	return nil
}
