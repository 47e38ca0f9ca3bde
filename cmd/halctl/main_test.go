package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/seagrayinc/halproto/pkg/fet"
	"github.com/seagrayinc/halproto/pkg/hal"
	"github.com/seagrayinc/halproto/pkg/hal/haltest"
	"github.com/seagrayinc/halproto/pkg/transport"
)

func newTestFET(t *testing.T) (*fet.FET, *haltest.Simulator) {
	t.Helper()
	fm := fet.DefaultFunctionMap()
	mem := make([]byte, 0x100)

	sim := haltest.NewSimulator()
	sim.LowLevel[hal.TypeCoreGetVcc] = func([]byte) ([]byte, error) {
		return []byte{0xe4, 0x0c, 0x00, 0x00}, nil
	}
	sim.LowLevel[hal.TypeCoreSetVcc] = func([]byte) ([]byte, error) { return nil, nil }
	sim.Funclets[fm.ReadMemBytes] = func(args []byte) ([]byte, error) {
		addr := binary.LittleEndian.Uint32(args)
		n := binary.LittleEndian.Uint32(args[4:])
		return bytes.Clone(mem[addr : addr+n]), nil
	}
	sim.Funclets[fm.WriteMemBytes] = func(args []byte) ([]byte, error) {
		copy(mem[binary.LittleEndian.Uint32(args):], args[8:])
		return nil, nil
	}
	sim.Funclets[0x30] = func(args []byte) ([]byte, error) {
		return append([]byte{0xaa}, args...), nil
	}

	s := hal.New(sim.Device(hal.FlagChecksum), hal.FlagChecksum)
	return fet.New(s, fm, slog.New(slog.NewTextHandler(io.Discard, nil))), sim
}

func TestDispatch(t *testing.T) {
	f, _ := newTestFET(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"vcc"}, "vcc 3300 mV, external 0 mV\n"},
		{[]string{"vcc", "3000"}, ""},
		{[]string{"sync"}, "ok\n"},
		{[]string{"exec", "0x30", "01-02"}, "data aa-01-02\n"},
		{[]string{"write", "0x10", "deadbeef"}, ""},
		{[]string{"read", "0x10", "4"}, "00010: de ad be ef\n"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			var out bytes.Buffer
			if err := dispatch(context.Background(), f, tt.args, &out); err != nil {
				t.Fatalf("dispatch() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestDispatchErrors(t *testing.T) {
	f, _ := newTestFET(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"frobnicate"}, "unknown command"},
		{[]string{"fet", "sideways"}, "usage: fet on|off"},
		{[]string{"read", "0x10"}, "usage: read"},
		{[]string{"exec", "0x77"}, "UNKNOWN_COMMAND"},
		{[]string{"write", "0", "xyz"}, "bad hex"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			err := dispatch(context.Background(), f, tt.args, io.Discard)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("dispatch() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestShell(t *testing.T) {
	f, _ := newTestFET(t)

	script := strings.Join([]string{
		"# comment",
		"sync",
		`exec 0x30 "01 02"`,
		"fet",
		"quit",
		"sync",
	}, "\n")

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := shell(context.Background(), f, strings.NewReader(script), &out, logger); err != nil {
		t.Fatalf("shell() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"ok\n", "data aa-01-02\n", "error: usage: fet"} {
		if !strings.Contains(got, want) {
			t.Errorf("shell output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "ok\n") != 1 {
		t.Errorf("commands after quit were run:\n%s", got)
	}
}

func TestRunWithoutLink(t *testing.T) {
	// The configured serial device does not exist, so any attempt to open it fails.
	args := []string{"-device", "/nonexistent/tty", "functions"}

	var out bytes.Buffer
	if err := run(context.Background(), args, strings.NewReader(""), &out, io.Discard); err != nil {
		t.Fatalf("run(functions) error = %v", err)
	}
	if !strings.Contains(out.String(), "read_mem_bytes   0x0014") {
		t.Errorf("functions output = %q", out.String())
	}

	err := run(context.Background(), []string{"-device", "/nonexistent/tty", "frobnicate"}, strings.NewReader(""), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("run(frobnicate) error = %v, want unknown command", err)
	}
}

func TestParseFlags(t *testing.T) {
	cfg, rest, err := parseFlags([]string{"-link", "tcp", "-device", "localhost:2000", "-timeout", "150ms", "-checksum=false", "-v", "sync"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if cfg.Link.Kind != transport.KindTCP || cfg.Link.Device != "localhost:2000" {
		t.Errorf("link = %+v", cfg.Link)
	}
	if cfg.Timeout != 150*time.Millisecond || cfg.Checksum || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(rest) != 1 || rest[0] != "sync" {
		t.Errorf("rest = %v", rest)
	}

	if _, _, err := parseFlags([]string{"-link", "carrier-pigeon"}, io.Discard); err == nil {
		t.Error("parseFlags() accepted an unknown link")
	}
}
