package hal

import "fmt"

// MessageType tags every frame with its meaning.
type MessageType byte

const (
	// Low-level setup and control
	TypeUpInit            MessageType = 0x51
	TypeUpErase           MessageType = 0x52
	TypeUpWrite           MessageType = 0x53
	TypeUpRead            MessageType = 0x54
	TypeUpCore            MessageType = 0x55
	TypeDcdcCalibrate     MessageType = 0x56
	TypeDcdcInitInterface MessageType = 0x57
	TypeDcdcSubMcuVersion MessageType = 0x58
	TypeDcdcLayerVersion  MessageType = 0x59
	TypeDcdcPowerDown     MessageType = 0x60
	TypeDcdcSetVcc        MessageType = 0x61
	TypeDcdcRestart       MessageType = 0x62
	TypeCoreSetVcc        MessageType = 0x63
	TypeCoreGetVcc        MessageType = 0x64
	TypeCoreSwitchFet     MessageType = 0x65
	TypeCmpVersions       MessageType = 0x66

	// Commands
	TypeCmdLegacy          MessageType = 0x7e
	TypeCmdSync            MessageType = 0x80
	TypeCmdExecute         MessageType = 0x81
	TypeCmdExecuteLoop     MessageType = 0x82
	TypeCmdLoad            MessageType = 0x83
	TypeCmdLoadContinued   MessageType = 0x84
	TypeCmdData            MessageType = 0x85
	TypeCmdKill            MessageType = 0x86
	TypeCmdMove            MessageType = 0x87
	TypeCmdUnload          MessageType = 0x88
	TypeCmdBypass          MessageType = 0x89
	TypeCmdExecuteLoopCont MessageType = 0x8a
	TypeCmdComReset        MessageType = 0x8b
	TypeCmdPauseLoop       MessageType = 0x8c
	TypeCmdResumeLoop      MessageType = 0x8d
	TypeCmdKillAll         MessageType = 0x8e
	TypeCmdOverCurrent     MessageType = 0x8f

	// Responses
	TypeAcknowledge MessageType = 0x91
	TypeException   MessageType = 0x92
	TypeData        MessageType = 0x93
	TypeDataRequest MessageType = 0x94
	TypeStatus      MessageType = 0x95
)

var typeNames = map[MessageType]string{
	TypeUpInit:            "UP_INIT",
	TypeUpErase:           "UP_ERASE",
	TypeUpWrite:           "UP_WRITE",
	TypeUpRead:            "UP_READ",
	TypeUpCore:            "UP_CORE",
	TypeDcdcCalibrate:     "DCDC_CALIBRATE",
	TypeDcdcInitInterface: "DCDC_INIT_INTERFACE",
	TypeDcdcSubMcuVersion: "DCDC_SUB_MCU_VERSION",
	TypeDcdcLayerVersion:  "DCDC_LAYER_VERSION",
	TypeDcdcPowerDown:     "DCDC_POWER_DOWN",
	TypeDcdcSetVcc:        "DCDC_SET_VCC",
	TypeDcdcRestart:       "DCDC_RESTART",
	TypeCoreSetVcc:        "CORE_SET_VCC",
	TypeCoreGetVcc:        "CORE_GET_VCC",
	TypeCoreSwitchFet:     "CORE_SWITCH_FET",
	TypeCmpVersions:       "CMP_VERSIONS",

	TypeCmdLegacy:          "CMD_LEGACY",
	TypeCmdSync:            "CMD_SYNC",
	TypeCmdExecute:         "CMD_EXECUTE",
	TypeCmdExecuteLoop:     "CMD_EXECUTE_LOOP",
	TypeCmdLoad:            "CMD_LOAD",
	TypeCmdLoadContinued:   "CMD_LOAD_CONTINUED",
	TypeCmdData:            "CMD_DATA",
	TypeCmdKill:            "CMD_KILL",
	TypeCmdMove:            "CMD_MOVE",
	TypeCmdUnload:          "CMD_UNLOAD",
	TypeCmdBypass:          "CMD_BYPASS",
	TypeCmdExecuteLoopCont: "CMD_EXECUTE_LOOP_CONT",
	TypeCmdComReset:        "CMD_COM_RESET",
	TypeCmdPauseLoop:       "CMD_PAUSE_LOOP",
	TypeCmdResumeLoop:      "CMD_RESUME_LOOP",
	TypeCmdKillAll:         "CMD_KILL_ALL",
	TypeCmdOverCurrent:     "CMD_OVER_CURRENT",

	TypeAcknowledge: "ACKNOWLEDGE",
	TypeException:   "EXCEPTION",
	TypeData:        "DATA",
	TypeDataRequest: "DATA_REQUEST",
	TypeStatus:      "STATUS",
}

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// IsResponse reports whether t is only ever sent by the device.
func (t MessageType) IsResponse() bool {
	return t >= TypeAcknowledge && t <= TypeStatus
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE(0x%02x)", byte(t))
}
