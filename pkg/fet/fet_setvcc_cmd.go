package fet

import (
	"encoding/binary"
	"fmt"

	"github.com/seagrayinc/halproto/pkg/hal"
)

// MaxVcc is the highest target supply the adapter can generate, in millivolts.
const MaxVcc = 3600

func SetVcc(millivolts uint16) Command {
	return Command{
		Type:    hal.TypeCoreSetVcc,
		Payload: binary.LittleEndian.AppendUint16(nil, millivolts),
	}
}

// SetVcc sets the target supply. Zero switches it off.
func (f *FET) SetVcc(millivolts int) error {
	if millivolts < 0 || millivolts > MaxVcc {
		return fmt.Errorf("fet: vcc %d mV out of range 0..%d", millivolts, MaxVcc)
	}
	_, err := f.Do(SetVcc(uint16(millivolts)))
	return err
}
