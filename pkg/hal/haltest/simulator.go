package haltest

import (
	"encoding/binary"
	"errors"

	"github.com/seagrayinc/halproto/pkg/hal"
)

// Funclet is a simulated device function. A nil result is acknowledged without data. Returning a
// hal.ExceptionCode as the error answers with that EXCEPTION; any other error answers with
// EXECUTE_FUNCLET_EXECUTION_ERROR.
type Funclet func(args []byte) ([]byte, error)

// LowLevel answers one low-level request type. A nil result is acknowledged without data.
type LowLevel func(payload []byte) ([]byte, error)

// Simulator plays the device side of the execute protocol: it reassembles uploaded arguments,
// runs the named Funclet and streams its result back on DATA_REQUEST.
type Simulator struct {
	Funclets map[hal.FunctionID]Funclet
	LowLevel map[hal.MessageType]LowLevel

	// Running records loops started with CMD_EXECUTE_LOOP and not yet killed.
	Running map[hal.FunctionID]bool

	args    []byte
	pending []byte
}

func NewSimulator() *Simulator {
	return &Simulator{
		Funclets: make(map[hal.FunctionID]Funclet),
		LowLevel: make(map[hal.MessageType]LowLevel),
		Running:  make(map[hal.FunctionID]bool),
	}
}

// Device returns a Device driven by the simulator.
func (s *Simulator) Device(flags hal.Flags) *Device {
	return NewDevice(flags, s.Handle)
}

// Handle implements Handler.
func (s *Simulator) Handle(req hal.Message) []hal.Message {
	switch req.Type {
	case hal.TypeCmdLoad:
		s.args = append(s.args[:0], req.Payload...)
		return []hal.Message{Ack(req)}

	case hal.TypeCmdLoadContinued:
		s.args = append(s.args, req.Payload...)
		return []hal.Message{Ack(req)}

	case hal.TypeCmdExecute:
		return []hal.Message{s.execute(req)}

	case hal.TypeDataRequest:
		if len(s.pending) == 0 {
			return []hal.Message{Ack(req)}
		}
		n := min(len(s.pending), hal.MaxPayload)
		chunk := s.pending[:n]
		s.pending = s.pending[n:]
		return []hal.Message{Data(req, chunk)}

	case hal.TypeCmdExecuteLoop, hal.TypeCmdResumeLoop:
		fid, ok := functionID(req)
		if !ok {
			return []hal.Message{Exception(req, hal.ExcNoCommand)}
		}
		if _, ok := s.Funclets[fid]; !ok {
			return []hal.Message{Exception(req, hal.ExcUnknownCommand)}
		}
		s.args = s.args[:0]
		s.Running[fid] = true
		return []hal.Message{Ack(req)}

	case hal.TypeCmdPauseLoop, hal.TypeCmdKill:
		fid, ok := functionID(req)
		if !ok {
			return []hal.Message{Exception(req, hal.ExcNoCommand)}
		}
		delete(s.Running, fid)
		return []hal.Message{Ack(req)}

	case hal.TypeCmdKillAll:
		clear(s.Running)
		return []hal.Message{Ack(req)}

	case hal.TypeCmdSync, hal.TypeCmdComReset:
		return []hal.Message{Ack(req)}
	}

	h, ok := s.LowLevel[req.Type]
	if !ok {
		return []hal.Message{Exception(req, hal.ExcUnknownCommand)}
	}
	out, err := h(req.Payload)
	if err != nil {
		return []hal.Message{Exception(req, exceptionFor(err))}
	}
	if out == nil {
		return []hal.Message{Ack(req)}
	}
	return []hal.Message{Data(req, out)}
}

func (s *Simulator) execute(req hal.Message) hal.Message {
	fid, ok := functionID(req)
	if !ok {
		return Exception(req, hal.ExcNoCommand)
	}
	f, ok := s.Funclets[fid]
	if !ok {
		return Exception(req, hal.ExcUnknownCommand)
	}

	args := s.args
	s.args = nil
	out, err := f(args)
	if err != nil {
		return Exception(req, exceptionFor(err))
	}
	if out == nil {
		return Ack(req)
	}

	first := min(len(out), hal.MaxPayload-2)
	payload := binary.LittleEndian.AppendUint16(nil, uint16(len(out)))
	payload = append(payload, out[:first]...)
	s.pending = out[first:]
	return Data(req, payload)
}

func functionID(req hal.Message) (hal.FunctionID, bool) {
	if len(req.Payload) < 2 {
		return 0, false
	}
	return hal.FunctionID(binary.LittleEndian.Uint16(req.Payload)), true
}

func exceptionFor(err error) hal.ExceptionCode {
	var code hal.ExceptionCode
	if errors.As(err, &code) {
		return code
	}
	return hal.ExcExecuteFuncletExecutionError
}
