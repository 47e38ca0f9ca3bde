package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/seagrayinc/halproto/internal/metrics"
	"github.com/seagrayinc/halproto/pkg/fet"
	"github.com/seagrayinc/halproto/pkg/hal"
)

var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(f *fet.FET, args []string, w io.Writer) error

	// local, when set, answers the command from configuration alone, without a link.
	local func(fm fet.FunctionMap, args []string, w io.Writer) error
}

var commands = map[string]command{
	"vcc": {
		usage: "[mV]          read the target supply, or set it",
		run:   cmdVcc,
	},
	"fet": {
		usage: "on|off        switch the target supply through",
		run:   cmdFet,
	},
	"sync": {
		usage: "              check the adapter is listening",
		run: func(f *fet.FET, _ []string, w io.Writer) error {
			if err := f.Sync(); err != nil {
				return err
			}
			fmt.Fprintln(w, "ok")
			return nil
		},
	},
	"reset": {
		usage: "              reset the adapter's side of the link",
		run: func(f *fet.FET, _ []string, w io.Writer) error {
			return f.ComReset()
		},
	},
	"versions": {
		usage: "              print adapter layer versions",
		run:   cmdVersions,
	},
	"exec": {
		usage: "<fid> [hex]   execute a HAL function",
		run:   cmdExec,
	},
	"read": {
		usage: "<addr> <n>    dump target memory",
		run:   cmdRead,
	},
	"write": {
		usage: "<addr> <hex>  write target memory",
		run:   cmdWrite,
	},
	"functions": {
		usage: "              list the function table",
		run: func(f *fet.FET, args []string, w io.Writer) error {
			return listFunctions(f.Functions(), args, w)
		},
		local: listFunctions,
	},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (command, error) {
	c, ok := commands[name]
	if !ok {
		return command{}, fmt.Errorf("unknown command %q", name)
	}
	return c, nil
}

func dispatch(ctx context.Context, f *fet.FET, args []string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := lookup(args[0])
	if err != nil {
		return err
	}

	start := time.Now()
	err = c.run(f, args[1:], w)
	metrics.RecordCommand(args[0], time.Since(start), err)

	if errors.Is(err, errUsage) {
		return fmt.Errorf("usage: %s %s", args[0], strings.TrimSpace(strings.SplitN(c.usage, "  ", 2)[0]))
	}
	return err
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", s, err)
	}
	return v, nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer("-", "", ":", "", " ", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad hex %q: %w", s, err)
	}
	return b, nil
}

func cmdVcc(f *fet.FET, args []string, w io.Writer) error {
	switch len(args) {
	case 0:
		v, err := f.GetVcc()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "vcc %d mV, external %d mV\n", v.Millivolts, v.ExternalMillivolts)
		return nil
	case 1:
		mv, err := parseUint(args[0], 16)
		if err != nil {
			return err
		}
		return f.SetVcc(int(mv))
	default:
		return errUsage
	}
}

func cmdFet(f *fet.FET, args []string, _ io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	switch args[0] {
	case "on":
		return f.SwitchFet(true)
	case "off":
		return f.SwitchFet(false)
	default:
		return errUsage
	}
}

func cmdVersions(f *fet.FET, _ []string, w io.Writer) error {
	sub, err := f.SubMcuVersion()
	if err != nil {
		return err
	}
	layer, err := f.LayerVersion()
	if err != nil {
		return err
	}
	cmp, err := f.CompareVersions()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "sub-mcu %d, layer %d (built against %d), compatible %t\n",
		sub.Version, layer.Version, layer.CmpVersion, cmp.Compatible)
	return nil
}

func cmdExec(f *fet.FET, args []string, w io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}

	var fid hal.FunctionID
	if id, ok := f.Functions().Lookup(args[0]); ok {
		fid = id
	} else {
		v, err := parseUint(args[0], 16)
		if err != nil {
			return err
		}
		fid = hal.FunctionID(v)
	}

	var in []byte
	if len(args) == 2 {
		var err error
		if in, err = parseHex(args[1]); err != nil {
			return err
		}
	}

	res, err := f.Execute(fid, in)
	if err != nil {
		return err
	}
	switch res.Kind {
	case hal.ResultStatus:
		fmt.Fprintf(w, "status 0x%04x", res.Status)
	default:
		fmt.Fprint(w, res.Kind)
	}
	if len(res.Data) > 0 {
		fmt.Fprintf(w, " %s", hal.EncodeFrameToString(res.Data))
	}
	fmt.Fprintln(w)
	return nil
}

func cmdRead(f *fet.FET, args []string, w io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	addr, err := parseUint(args[0], 32)
	if err != nil {
		return err
	}
	n, err := parseUint(args[1], 31)
	if err != nil {
		return err
	}

	data, err := f.ReadMemory(uint32(addr), int(n))
	if err != nil {
		return err
	}

	for off := 0; off < len(data); off += 16 {
		end := min(off+16, len(data))
		fmt.Fprintf(w, "%05x: % x\n", addr+uint64(off), data[off:end])
	}
	return nil
}

func cmdWrite(f *fet.FET, args []string, _ io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	addr, err := parseUint(args[0], 32)
	if err != nil {
		return err
	}
	data, err := parseHex(args[1])
	if err != nil {
		return err
	}
	return f.WriteMemory(uint32(addr), data)
}

func listFunctions(fm fet.FunctionMap, _ []string, w io.Writer) error {
	for _, name := range fm.Names() {
		id, _ := fm.Lookup(name)
		fmt.Fprintf(w, "%-16s 0x%04x\n", name, uint16(id))
	}
	return nil
}
