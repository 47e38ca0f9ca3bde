package fet

import (
	"encoding/binary"

	"github.com/seagrayinc/halproto/pkg/hal"
)

func GetVcc() Command {
	return Command{Type: hal.TypeCoreGetVcc}
}

// GetVccResponse reports the supply the adapter drives and, when fitted, the voltage measured on
// the target's external supply pin.
type GetVccResponse struct {
	Millivolts         int
	ExternalMillivolts int
}

func parseGetVccResponse(b []byte) (GetVccResponse, error) {
	if err := short("CORE_GET_VCC reply", b, 2); err != nil {
		return GetVccResponse{}, err
	}
	r := GetVccResponse{Millivolts: int(binary.LittleEndian.Uint16(b))}
	if len(b) >= 4 {
		r.ExternalMillivolts = int(binary.LittleEndian.Uint16(b[2:4]))
	}
	return r, nil
}

func (f *FET) GetVcc() (GetVccResponse, error) {
	return query[GetVccResponse](f, GetVcc())
}
