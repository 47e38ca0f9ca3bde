package fet

import (
	"github.com/seagrayinc/halproto/pkg/hal"
)

func SwitchFet(on bool) Command {
	var state byte
	if on {
		state = 1
	}
	return Command{Type: hal.TypeCoreSwitchFet, Payload: []byte{state}}
}

// SwitchFet connects or disconnects the supply switch between the adapter and the target.
func (f *FET) SwitchFet(on bool) error {
	_, err := f.Do(SwitchFet(on))
	return err
}
