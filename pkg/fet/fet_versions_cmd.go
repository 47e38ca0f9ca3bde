package fet

import (
	"encoding/binary"

	"github.com/seagrayinc/halproto/pkg/hal"
)

func SubMcuVersion() Command {
	return Command{Type: hal.TypeDcdcSubMcuVersion}
}

type SubMcuVersionResponse struct {
	Version int
}

func parseSubMcuVersionResponse(b []byte) (SubMcuVersionResponse, error) {
	if err := short("DCDC_SUB_MCU_VERSION reply", b, 2); err != nil {
		return SubMcuVersionResponse{}, err
	}
	return SubMcuVersionResponse{Version: int(binary.LittleEndian.Uint16(b))}, nil
}

func (f *FET) SubMcuVersion() (SubMcuVersionResponse, error) {
	return query[SubMcuVersionResponse](f, SubMcuVersion())
}

func LayerVersion() Command {
	return Command{Type: hal.TypeDcdcLayerVersion}
}

// LayerVersionResponse carries the DC-DC layer version and, from newer firmware, the version of
// the layer it was built against.
type LayerVersionResponse struct {
	Version    int
	CmpVersion int
}

func parseLayerVersionResponse(b []byte) (LayerVersionResponse, error) {
	if err := short("DCDC_LAYER_VERSION reply", b, 2); err != nil {
		return LayerVersionResponse{}, err
	}
	r := LayerVersionResponse{Version: int(binary.LittleEndian.Uint16(b))}
	if len(b) >= 4 {
		r.CmpVersion = int(binary.LittleEndian.Uint16(b[2:4]))
	}
	return r, nil
}

func (f *FET) LayerVersion() (LayerVersionResponse, error) {
	return query[LayerVersionResponse](f, LayerVersion())
}

func CompareVersions() Command {
	return Command{Type: hal.TypeCmpVersions}
}

// CompareVersionsResponse holds the core's verdict on whether its layers match. Result zero means
// compatible.
type CompareVersionsResponse struct {
	Result     int
	Compatible bool
}

func parseCompareVersionsResponse(b []byte) (CompareVersionsResponse, error) {
	if err := short("CMP_VERSIONS reply", b, 2); err != nil {
		return CompareVersionsResponse{}, err
	}
	res := int(binary.LittleEndian.Uint16(b))
	return CompareVersionsResponse{Result: res, Compatible: res == 0}, nil
}

func (f *FET) CompareVersions() (CompareVersionsResponse, error) {
	return query[CompareVersionsResponse](f, CompareVersions())
}
