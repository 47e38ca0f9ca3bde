// Package fet drives an MSP430 debug adapter (MSP-FET, eZ-FET) through a hal.Session: power and
// version queries as low-level commands, target memory access as executed HAL functions.
package fet

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"

	"github.com/seagrayinc/halproto/pkg/hal"
)

// Command is a single-frame low-level request.
type Command struct {
	Type    hal.MessageType
	Payload []byte
}

type parserFunc func([]byte) (any, error)

// wrappedParser is a helper to convert a typed parser function into a generic parserFunc.
func wrappedParser[T any](f func([]byte) (T, error)) parserFunc {
	return func(b []byte) (any, error) {
		return f(b)
	}
}

var (
	parserMap = map[hal.MessageType]parserFunc{
		hal.TypeCoreGetVcc:        wrappedParser(parseGetVccResponse),
		hal.TypeDcdcSubMcuVersion: wrappedParser(parseSubMcuVersionResponse),
		hal.TypeDcdcLayerVersion:  wrappedParser(parseLayerVersionResponse),
		hal.TypeCmpVersions:       wrappedParser(parseCompareVersionsResponse),
	}
)

// FET is an adapter reachable over a Session. Its methods may be called from several goroutines;
// exchanges are serialized.
type FET struct {
	mu        sync.Mutex
	s         *hal.Session
	functions FunctionMap
	logger    *slog.Logger
}

func New(s *hal.Session, functions FunctionMap, logger *slog.Logger) *FET {
	if logger == nil {
		logger = slog.Default()
	}
	return &FET{s: s, functions: functions, logger: logger}
}

// Functions returns the function table in use.
func (f *FET) Functions() FunctionMap {
	return f.functions
}

// Do sends cmd and parses the reply. An acknowledged command yields nil; a DATA reply yields the
// typed response registered for cmd.Type, or the raw payload when none is.
func (f *FET) Do(cmd Command) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.s.Transact(cmd.Type, cmd.Payload)
	if err != nil {
		return nil, fmt.Errorf("fet: %s: %w", cmd.Type, err)
	}

	switch m.Type {
	case hal.TypeAcknowledge:
		return nil, nil
	case hal.TypeData, hal.TypeStatus:
	default:
		return nil, fmt.Errorf("fet: %s: %w: %s", cmd.Type, hal.ErrUnexpectedType, m.Type)
	}

	parser, ok := parserMap[cmd.Type]
	if !ok {
		f.logger.Debug("no parser for reply", slog.String("command", cmd.Type.String()))
		return append([]byte(nil), m.Payload...), nil
	}
	resp, err := parser(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("fet: %s: %w", cmd.Type, err)
	}
	return resp, nil
}

// query runs cmd and asserts the response type.
func query[T any](f *FET, cmd Command) (T, error) {
	var zero T
	resp, err := f.Do(cmd)
	if err != nil {
		return zero, err
	}
	r, ok := resp.(T)
	if !ok {
		return zero, fmt.Errorf("fet: %s: %w: no data in reply", cmd.Type, hal.ErrMalformed)
	}
	return r, nil
}

// exec runs one HAL function under the lock. The result data is copied out of the session
// before the lock is released.
func (f *FET) exec(fid hal.FunctionID, args []byte) (hal.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	res, err := f.s.Execute(fid, args)
	if err != nil {
		return hal.Result{}, err
	}
	res.Data = bytes.Clone(res.Data)
	return res, nil
}

func (f *FET) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s.Sync()
}

func (f *FET) ComReset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s.ComReset()
}

func short(name string, b []byte, n int) error {
	if len(b) < n {
		return fmt.Errorf("%w: %s is %d bytes, want %d", hal.ErrMalformed, name, len(b), n)
	}
	return nil
}
