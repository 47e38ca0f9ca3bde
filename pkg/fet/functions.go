package fet

import (
	"fmt"
	"sort"

	"github.com/seagrayinc/halproto/pkg/hal"
)

// FunctionMap names the HAL function ids this package executes. Adapter firmware builds number
// their function tables differently, so every entry can be overridden. Supply voltage is handled
// by low-level commands and has no entry.
type FunctionMap struct {
	Init           hal.FunctionID
	StartJtag      hal.FunctionID
	StopJtag       hal.FunctionID
	GetJtagID      hal.FunctionID
	ReadMemBytes   hal.FunctionID
	ReadMemWords   hal.FunctionID
	WriteMemBytes  hal.FunctionID
	WriteMemWords  hal.FunctionID
	ExecuteFunclet hal.FunctionID
}

// DefaultFunctionMap returns the starting table. Entries should be overridden to match the
// adapter firmware in use.
func DefaultFunctionMap() FunctionMap {
	return FunctionMap{
		Init:           0x00,
		StartJtag:      0x03,
		StopJtag:       0x05,
		GetJtagID:      0x0b,
		ReadMemBytes:   0x14,
		ReadMemWords:   0x15,
		WriteMemBytes:  0x17,
		WriteMemWords:  0x18,
		ExecuteFunclet: 0x2a,
	}
}

func (m *FunctionMap) fields() map[string]*hal.FunctionID {
	return map[string]*hal.FunctionID{
		"init":            &m.Init,
		"start_jtag":      &m.StartJtag,
		"stop_jtag":       &m.StopJtag,
		"get_jtag_id":     &m.GetJtagID,
		"read_mem_bytes":  &m.ReadMemBytes,
		"read_mem_words":  &m.ReadMemWords,
		"write_mem_bytes": &m.WriteMemBytes,
		"write_mem_words": &m.WriteMemWords,
		"execute_funclet": &m.ExecuteFunclet,
	}
}

// Apply overrides entries by their snake_case names. Unknown names are an error so a typo in a
// config file does not go unnoticed.
func (m *FunctionMap) Apply(overrides map[string]uint16) error {
	fields := m.fields()
	for name, id := range overrides {
		p, ok := fields[name]
		if !ok {
			return fmt.Errorf("fet: unknown function %q", name)
		}
		*p = hal.FunctionID(id)
	}
	return nil
}

// Names returns the entry names Apply accepts, sorted.
func (m FunctionMap) Names() []string {
	fields := m.fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the id of the named entry.
func (m FunctionMap) Lookup(name string) (hal.FunctionID, bool) {
	p, ok := m.fields()[name]
	if !ok {
		return 0, false
	}
	return *p, true
}
