package hal

import "fmt"

// ExceptionCode is a failure reason, either reported by the device in an EXCEPTION frame or raised
// by this engine. ExceptionCode implements error, so callers can match codes with errors.Is and
// extract them with errors.As.
type ExceptionCode uint16

// Origin partitions the code space.
type Origin int

const (
	OriginNone     Origin = iota // ExcNone
	OriginDevice                 // 0xFFxx, reported by the device
	OriginEngine                 // 0x8000..0x800B, raised by the engine or transport
	OriginReserved               // anything else, not defined by the protocol
)

func (o Origin) String() string {
	switch o {
	case OriginNone:
		return "none"
	case OriginDevice:
		return "device"
	case OriginEngine:
		return "engine"
	default:
		return "reserved"
	}
}

const (
	ExcNone      ExceptionCode = 0x0000
	ExcUndefined ExceptionCode = 0xFFFF

	// Funclet execution
	ExcExecuteFuncletNoRAMStart       ExceptionCode = 0xFFFE
	ExcExecuteFuncletNoRAMSize        ExceptionCode = 0xFFFD
	ExcExecuteFuncletNoOffset         ExceptionCode = 0xFFFC
	ExcExecuteFuncletNoAddress        ExceptionCode = 0xFFFB
	ExcExecuteFuncletNoLength         ExceptionCode = 0xFFFA
	ExcExecuteFuncletNoType           ExceptionCode = 0xFFF9
	ExcExecuteFuncletNoLockA          ExceptionCode = 0xFFF8
	ExcExecuteFuncletExecutionTimeout ExceptionCode = 0xFFF7
	ExcExecuteFuncletExecutionError   ExceptionCode = 0xFFF6

	// Memory writes
	ExcWriteMemWordNoRAMAddress  ExceptionCode = 0xFFF5
	ExcWriteMemWordNoRAMSize     ExceptionCode = 0xFFF4
	ExcWriteMemWordUnknown       ExceptionCode = 0xFFF3
	ExcWriteMemBytesNoRAMAddress ExceptionCode = 0xFFF2
	ExcWriteMemBytesNoRAMSize    ExceptionCode = 0xFFF1
	ExcWriteMemBytesUnknown      ExceptionCode = 0xFFF0

	// Flash writes
	ExcWriteFlashWordNoFlashAddress ExceptionCode = 0xFFEF
	ExcWriteFlashWordNoFlashSize    ExceptionCode = 0xFFEE
	ExcWriteFlashWordUnknown        ExceptionCode = 0xFFED
	ExcWriteFlashQuickUnknown       ExceptionCode = 0xFFEC

	// JTAG start and chain configuration
	ExcStartJtagNoProtocol         ExceptionCode = 0xFFEB
	ExcStartJtagProtocolUnknown    ExceptionCode = 0xFFEA
	ExcSetChainConfigurationStream ExceptionCode = 0xFFE9

	// Context restore
	ExcRestoreContextReleaseJtagNoWdtAddress  ExceptionCode = 0xFFE8
	ExcRestoreContextReleaseJtagNoWdtValue    ExceptionCode = 0xFFE7
	ExcRestoreContextReleaseJtagNoPC          ExceptionCode = 0xFFE6
	ExcRestoreContextReleaseJtagNoSR          ExceptionCode = 0xFFE5
	ExcRestoreContextReleaseJtagNoControlMask ExceptionCode = 0xFFE4
	ExcRestoreContextReleaseJtagNoMDB         ExceptionCode = 0xFFE3

	// Memory reads
	ExcReadMemUnknown        ExceptionCode = 0xFFE0
	ExcReadMemBytesNoAddress ExceptionCode = 0xFFDF
	ExcReadMemBytesNoSize    ExceptionCode = 0xFFDE
	ExcPSANoAddress          ExceptionCode = 0xFFDD
	ExcPSANoSize             ExceptionCode = 0xFFDC

	// JTAG synchronization
	ExcSyncJtagAssertPorJtagTimeout    ExceptionCode = 0xFFDB
	ExcSyncJtagAssertPorNoWdtAddress   ExceptionCode = 0xFFDA
	ExcSyncJtagAssertPorNoWdtValue     ExceptionCode = 0xFFD9
	ExcWriteAllCPURegistersStream      ExceptionCode = 0xFFD8
	ExcWriteMemWordXv2NoRAMAddress     ExceptionCode = 0xFFD7
	ExcWriteMemWordXv2NoRAMSize        ExceptionCode = 0xFFD6
	ExcSecureNoTgtHasTestPin           ExceptionCode = 0xFFD5
	ExcSyncJtagConditionalJtagTimeout  ExceptionCode = 0xFFD4
	ExcSyncJtagConditionalNoWdtAddress ExceptionCode = 0xFFD3
	ExcSyncJtagConditionalNoWdtValue   ExceptionCode = 0xFFD2
	ExcInstructionBoundaryError        ExceptionCode = 0xFFD1
	ExcJtagVersionMismatch             ExceptionCode = 0xFFD0
	ExcJtagMailboxInTimeout            ExceptionCode = 0xFFCF
	ExcJtagPasswordWrong               ExceptionCode = 0xFFCE
	ExcStartJtagNoActivationCode       ExceptionCode = 0xFFCD
	ExcSinglestepWaitForEemTimeout     ExceptionCode = 0xFFCC

	// Configuration
	ExcConfigNoParameter           ExceptionCode = 0xFFCB
	ExcConfigNoValue               ExceptionCode = 0xFFCA
	ExcConfigParamUnknownParameter ExceptionCode = 0xFFC9
	ExcNoNumBits                   ExceptionCode = 0xFFC8
	ExcArraySizeMismatch           ExceptionCode = 0xFFC7
	ExcNoCommand                   ExceptionCode = 0xFFC6
	ExcUnknownCommand              ExceptionCode = 0xFFC5
	ExcNoData                      ExceptionCode = 0xFFC4
	ExcNoBitSize                   ExceptionCode = 0xFFC3
	ExcInvalidBitSize              ExceptionCode = 0xFFC2

	// Password unlock
	ExcUnlockNoPasswordLength      ExceptionCode = 0xFFC1
	ExcUnlockInvalidPasswordLength ExceptionCode = 0xFFC0

	ExcExecuteFuncletFinishTimeout ExceptionCode = 0xFFBF
	ExcExecuteFuncletNoMaxRsel     ExceptionCode = 0xFFBE
	ExcAPICallNotSupported         ExceptionCode = 0xFFBD

	// Magic pattern boot validation
	ExcMagicPattern            ExceptionCode = 0xFFBC
	ExcMagicPatternBootDataCRC ExceptionCode = 0xFFBB
	ExcDAPNack                 ExceptionCode = 0xFFBA

	// Engine and transport
	ExcMessageNoResponse ExceptionCode = 0x8000
	ExcNotImplemented    ExceptionCode = 0x8001
	ExcMsgIDErr          ExceptionCode = 0x8002
	ExcCRCErr            ExceptionCode = 0x8003
	ExcRxTimeout         ExceptionCode = 0x8004
	ExcTxTimeout         ExceptionCode = 0x8005
	ExcRxOverflow        ExceptionCode = 0x8006
	ExcTxNoBuffer        ExceptionCode = 0x8007
	ExcComReset          ExceptionCode = 0x8008
	ExcRxNoBuffer        ExceptionCode = 0x8009
	ExcRxTooSmallBuffer  ExceptionCode = 0x800A
	ExcRxLength          ExceptionCode = 0x800B
)

// Memory word reads reuse the values of the byte-write codes.
const (
	ExcReadMemWordNoAddress = ExcWriteMemBytesNoRAMAddress
	ExcReadMemWordNoSize    = ExcWriteMemBytesNoRAMSize
)

var exceptionNames = map[ExceptionCode]string{
	ExcNone:      "NONE",
	ExcUndefined: "UNDEFINED",

	ExcExecuteFuncletNoRAMStart:       "EXECUTE_FUNCLET_NO_RAM_START",
	ExcExecuteFuncletNoRAMSize:        "EXECUTE_FUNCLET_NO_RAM_SIZE",
	ExcExecuteFuncletNoOffset:         "EXECUTE_FUNCLET_NO_OFFSET",
	ExcExecuteFuncletNoAddress:        "EXECUTE_FUNCLET_NO_ADDRESS",
	ExcExecuteFuncletNoLength:         "EXECUTE_FUNCLET_NO_LENGTH",
	ExcExecuteFuncletNoType:           "EXECUTE_FUNCLET_NO_TYPE",
	ExcExecuteFuncletNoLockA:          "EXECUTE_FUNCLET_NO_LOCKA",
	ExcExecuteFuncletExecutionTimeout: "EXECUTE_FUNCLET_EXECUTION_TIMEOUT",
	ExcExecuteFuncletExecutionError:   "EXECUTE_FUNCLET_EXECUTION_ERROR",

	ExcWriteMemWordNoRAMAddress:  "WRITE_MEM_WORD_NO_RAM_ADDRESS",
	ExcWriteMemWordNoRAMSize:     "WRITE_MEM_WORD_NO_RAM_SIZE",
	ExcWriteMemWordUnknown:       "WRITE_MEM_WORD_UNKNOWN",
	ExcWriteMemBytesNoRAMAddress: "WRITE_MEM_BYTES_NO_RAM_ADDRESS|READ_MEM_WORD_NO_ADDRESS",
	ExcWriteMemBytesNoRAMSize:    "WRITE_MEM_BYTES_NO_RAM_SIZE|READ_MEM_WORD_NO_SIZE",
	ExcWriteMemBytesUnknown:      "WRITE_MEM_BYTES_UNKNOWN",

	ExcWriteFlashWordNoFlashAddress: "WRITE_FLASH_WORD_NO_FLASH_ADDRESS",
	ExcWriteFlashWordNoFlashSize:    "WRITE_FLASH_WORD_NO_FLASH_SIZE",
	ExcWriteFlashWordUnknown:        "WRITE_FLASH_WORD_UNKNOWN",
	ExcWriteFlashQuickUnknown:       "WRITE_FLASH_QUICK_UNKNOWN",

	ExcStartJtagNoProtocol:         "START_JTAG_NO_PROTOCOL",
	ExcStartJtagProtocolUnknown:    "START_JTAG_PROTOCOL_UNKNOWN",
	ExcSetChainConfigurationStream: "SET_CHAIN_CONFIGURATION_STREAM",

	ExcRestoreContextReleaseJtagNoWdtAddress:  "RESTORECONTEXT_RELEASE_JTAG_NO_WDT_ADDRESS",
	ExcRestoreContextReleaseJtagNoWdtValue:    "RESTORECONTEXT_RELEASE_JTAG_NO_WDT_VALUE",
	ExcRestoreContextReleaseJtagNoPC:          "RESTORECONTEXT_RELEASE_JTAG_NO_PC",
	ExcRestoreContextReleaseJtagNoSR:          "RESTORECONTEXT_RELEASE_JTAG_NO_SR",
	ExcRestoreContextReleaseJtagNoControlMask: "RESTORECONTEXT_RELEASE_JTAG_NO_CONTROL_MASK",
	ExcRestoreContextReleaseJtagNoMDB:         "RESTORECONTEXT_RELEASE_JTAG_NO_MDB",

	ExcReadMemUnknown:        "READ_MEM_UNKNOWN",
	ExcReadMemBytesNoAddress: "READ_MEM_BYTES_NO_ADDRESS",
	ExcReadMemBytesNoSize:    "READ_MEM_BYTES_NO_SIZE",
	ExcPSANoAddress:          "PSA_NO_ADDRESS",
	ExcPSANoSize:             "PSA_NO_SIZE",

	ExcSyncJtagAssertPorJtagTimeout:    "SYNC_JTAG_ASSERT_POR_JTAG_TIMEOUT",
	ExcSyncJtagAssertPorNoWdtAddress:   "SYNC_JTAG_ASSERT_POR_NO_WDT_ADDRESS",
	ExcSyncJtagAssertPorNoWdtValue:     "SYNC_JTAG_ASSERT_POR_NO_WDT_VALUE",
	ExcWriteAllCPURegistersStream:      "WRITE_ALL_CPU_REGISTERS_STREAM",
	ExcWriteMemWordXv2NoRAMAddress:     "WRITE_MEM_WORD_XV2_NO_RAM_ADDRESS",
	ExcWriteMemWordXv2NoRAMSize:        "WRITE_MEM_WORD_XV2_NO_RAM_SIZE",
	ExcSecureNoTgtHasTestPin:           "SECURE_NO_TGT_HAS_TEST_PIN",
	ExcSyncJtagConditionalJtagTimeout:  "SYNC_JTAG_CONDITIONAL_JTAG_TIMEOUT",
	ExcSyncJtagConditionalNoWdtAddress: "SYNC_JTAG_CONDITIONAL_NO_WDT_ADDRESS",
	ExcSyncJtagConditionalNoWdtValue:   "SYNC_JTAG_CONDITIONAL_NO_WDT_VALUE",
	ExcInstructionBoundaryError:        "INSTRUCTION_BOUNDARY_ERROR",
	ExcJtagVersionMismatch:             "JTAG_VERSION_MISMATCH",
	ExcJtagMailboxInTimeout:            "JTAG_MAILBOX_IN_TIMOUT",
	ExcJtagPasswordWrong:               "JTAG_PASSWORD_WRONG",
	ExcStartJtagNoActivationCode:       "START_JTAG_NO_ACTIVATION_CODE",
	ExcSinglestepWaitForEemTimeout:     "SINGLESTEP_WAITFOREEM_TIMEOUT",

	ExcConfigNoParameter:           "CONFIG_NO_PARAMETER",
	ExcConfigNoValue:               "CONFIG_NO_VALUE",
	ExcConfigParamUnknownParameter: "CONFIG_PARAM_UNKNOWN_PARAMETER",
	ExcNoNumBits:                   "NO_NUM_BITS",
	ExcArraySizeMismatch:           "ARRAY_SIZE_MISMATCH",
	ExcNoCommand:                   "NO_COMMAND",
	ExcUnknownCommand:              "UNKNOWN_COMMAND",
	ExcNoData:                      "NO_DATA",
	ExcNoBitSize:                   "NO_BIT_SIZE",
	ExcInvalidBitSize:              "INVALID_BIT_SIZE",

	ExcUnlockNoPasswordLength:      "UNLOCK_NO_PASSWORD_LENGTH",
	ExcUnlockInvalidPasswordLength: "UNLOCK_INVALID_PASSWORD_LENGTH",

	ExcExecuteFuncletFinishTimeout: "EXECUTE_FUNCLET_FINISH_TIMEOUT",
	ExcExecuteFuncletNoMaxRsel:     "EXECUTE_FUNCLET_NO_MAXRSEL",
	ExcAPICallNotSupported:         "API_CALL_NOT_SUPPORTED",

	ExcMagicPattern:            "MAGIC_PATTERN",
	ExcMagicPatternBootDataCRC: "MAGIC_PATTERN_BOOT_DATA_CRC_WRONG",
	ExcDAPNack:                 "DAP_NACK",

	ExcMessageNoResponse: "MESSAGE_NO_RESPONSE",
	ExcNotImplemented:    "NOT_IMPLEMENT_ERR",
	ExcMsgIDErr:          "MSGID_ERR",
	ExcCRCErr:            "CRC_ERR",
	ExcRxTimeout:         "RX_TIMEOUT_ERR",
	ExcTxTimeout:         "TX_TIMEOUT_ERR",
	ExcRxOverflow:        "RX_OVERFLOW_ERR",
	ExcTxNoBuffer:        "TX_NO_BUFFER",
	ExcComReset:          "COM_RESET",
	ExcRxNoBuffer:        "RX_NO_BUFFER",
	ExcRxTooSmallBuffer:  "RX_TO_SMALL_BUFFER",
	ExcRxLength:          "RX_LENGTH",
}

// Origin reports which side of the link a code belongs to. Codes the protocol does not define
// report OriginReserved.
func (c ExceptionCode) Origin() Origin {
	switch {
	case c == ExcNone:
		return OriginNone
	case c >= ExcMessageNoResponse && c <= ExcRxLength:
		return OriginEngine
	case c >= ExcDAPNack && c != 0xFFE1 && c != 0xFFE2:
		return OriginDevice
	default:
		return OriginReserved
	}
}

// Known reports whether c is defined by the protocol.
func (c ExceptionCode) Known() bool {
	_, ok := exceptionNames[c]
	return ok
}

func (c ExceptionCode) String() string {
	if name, ok := exceptionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("RESERVED(0x%04X)", uint16(c))
}

func (c ExceptionCode) Error() string {
	return fmt.Sprintf("hal %s exception %s (0x%04X)", c.Origin(), c.String(), uint16(c))
}
