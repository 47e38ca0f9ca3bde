//go:build windows

package hid

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	hidDLL = windows.NewLazySystemDLL("hid.dll")

	procHidD_GetHidGuid            = hidDLL.NewProc("HidD_GetHidGuid")
	procHidD_GetAttributes         = hidDLL.NewProc("HidD_GetAttributes")
	procHidD_GetProductString      = hidDLL.NewProc("HidD_GetProductString")
	procHidD_GetManufacturerString = hidDLL.NewProc("HidD_GetManufacturerString")
	procHidD_GetPreparsedData      = hidDLL.NewProc("HidD_GetPreparsedData")
	procHidD_FreePreparsedData     = hidDLL.NewProc("HidD_FreePreparsedData")
	procHidP_GetCaps               = hidDLL.NewProc("HidP_GetCaps")
)

const hidpStatusSuccess = 0x00110000

type hiddAttributes struct {
	Size          uint32
	VendorID      uint16
	ProductID     uint16
	VersionNumber uint16
}

type hidpCaps struct {
	Usage                     uint16
	UsagePage                 uint16
	InputReportByteLength     uint16
	OutputReportByteLength    uint16
	FeatureReportByteLength   uint16
	Reserved                  [17]uint16
	NumberLinkCollectionNodes uint16
	NumberInputButtonCaps     uint16
	NumberInputValueCaps      uint16
	NumberInputDataIndices    uint16
	NumberOutputButtonCaps    uint16
	NumberOutputValueCaps     uint16
	NumberOutputDataIndices   uint16
	NumberFeatureButtonCaps   uint16
	NumberFeatureValueCaps    uint16
	NumberFeatureDataIndices  uint16
}

type winManager struct{}

func newManager() (Manager, error) {
	return &winManager{}, nil
}

func (m *winManager) List() ([]Info, error) {
	var guid windows.GUID
	procHidD_GetHidGuid.Call(uintptr(unsafe.Pointer(&guid)))

	paths, err := windows.CM_Get_Device_Interface_List("", &guid, windows.CM_GET_DEVICE_INTERFACE_LIST_PRESENT)
	if err != nil {
		return nil, fmt.Errorf("hid: list interfaces: %w", err)
	}

	var devices []Info
	for _, path := range paths {
		info, err := describe(path)
		if err != nil {
			// Devices held exclusively by another driver cannot be queried.
			continue
		}
		devices = append(devices, info)
	}
	return devices, nil
}

func describe(path string) (Info, error) {
	h, err := openPath(path, 0)
	if err != nil {
		return Info{}, err
	}
	defer windows.CloseHandle(h)

	var attrs hiddAttributes
	attrs.Size = uint32(unsafe.Sizeof(attrs))
	if r, _, _ := procHidD_GetAttributes.Call(uintptr(h), uintptr(unsafe.Pointer(&attrs))); r == 0 {
		return Info{}, fmt.Errorf("hid: HidD_GetAttributes failed for %s", path)
	}

	return Info{
		Path:         path,
		VendorID:     attrs.VendorID,
		ProductID:    attrs.ProductID,
		Manufacturer: hidString(procHidD_GetManufacturerString, h),
		Product:      hidString(procHidD_GetProductString, h),
	}, nil
}

func hidString(proc *windows.LazyProc, h windows.Handle) string {
	buf := make([]uint16, 256)
	if r, _, _ := proc.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)*2)); r == 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}

func openPath(path string, access uint32) (windows.Handle, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	return windows.CreateFile(p, access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil, windows.OPEN_EXISTING, 0, 0)
}

func (m *winManager) Open(info Info) (Device, error) {
	h, err := openPath(info.Path, windows.GENERIC_READ|windows.GENERIC_WRITE)
	if err != nil {
		return nil, fmt.Errorf("hid: open %s: %w", info.Path, err)
	}

	var preparsed uintptr
	if r, _, _ := procHidD_GetPreparsedData.Call(uintptr(h), uintptr(unsafe.Pointer(&preparsed))); r == 0 {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("hid: HidD_GetPreparsedData failed for %s", info.Path)
	}
	var caps hidpCaps
	r, _, _ := procHidP_GetCaps.Call(preparsed, uintptr(unsafe.Pointer(&caps)))
	procHidD_FreePreparsedData.Call(preparsed)
	if r != hidpStatusSuccess {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("hid: HidP_GetCaps failed: 0x%X", r)
	}

	return &winDevice{
		handle:    h,
		inputLen:  int(caps.InputReportByteLength),
		outputLen: int(caps.OutputReportByteLength),
	}, nil
}

func (m *winManager) OpenVIDPID(vendorID, productID uint16) (Device, error) {
	return openMatching(m, func(d Info) bool {
		return d.VendorID == vendorID && d.ProductID == productID
	})
}

type winDevice struct {
	handle    windows.Handle
	inputLen  int
	outputLen int

	closeOnce sync.Once
	closeErr  error
}

// WriteReport sends r padded to the device's output report length. Windows rejects short writes
// on interrupt OUT pipes.
func (d *winDevice) WriteReport(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	report := make([]byte, max(d.outputLen, len(r.Data)+1))
	report[0] = r.ID
	copy(report[1:], r.Data)

	var written uint32
	if err := windows.WriteFile(d.handle, report, &written, nil); err != nil {
		return fmt.Errorf("hid: WriteFile: %w", err)
	}
	return nil
}

func (d *winDevice) PollReports(ctx context.Context) <-chan Report {
	out := make(chan Report)

	go func() {
		<-ctx.Done()
		_ = d.Close()
	}()

	go func() {
		defer close(out)
		for {
			var read uint32
			buf := make([]byte, d.inputLen)
			if err := windows.ReadFile(d.handle, buf, &read, nil); err != nil {
				if ctx.Err() == nil {
					slog.Info("reading report failed", slog.Any("error", err))
				}
				return
			}
			if read == 0 {
				continue
			}

			select {
			case out <- Report{ID: buf[0], Data: buf[1:read]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (d *winDevice) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = windows.CloseHandle(d.handle)
	})
	return d.closeErr
}
