package hal

import (
	"encoding/binary"
	"fmt"
)

// FunctionID names a function in the device's HAL function table.
type FunctionID uint16

// ResultKind tags how a successful Execute completed.
type ResultKind int

const (
	// ResultAck means the function ran and returned nothing.
	ResultAck ResultKind = iota
	// ResultData means the function returned a data block.
	ResultData
	// ResultStatus means the function returned a status word, optionally with a data block.
	ResultStatus
)

func (k ResultKind) String() string {
	switch k {
	case ResultAck:
		return "ack"
	case ResultData:
		return "data"
	case ResultStatus:
		return "status"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is the outcome of a successful Execute.
type Result struct {
	Kind   ResultKind
	Status uint16

	// Data is a view into the session's payload buffer. It is valid until the next call on the
	// session and must not be modified.
	Data []byte
}

// Execute runs function fid on the device with args as its argument block.
//
// The arguments are uploaded first, split into CMD_LOAD / CMD_LOAD_CONTINUED frames of at most
// MaxPayload bytes, each acknowledged before the next is sent. CMD_EXECUTE then invokes the
// function. The reply is an ACKNOWLEDGE, a DATA frame led by the declared result length, or a
// STATUS frame led by the status word and optionally the declared length. Remaining result
// bytes are pulled with DATA_REQUEST until the declared length is reached.
//
// Any failure aborts the whole call. Nothing is retried.
func (s *Session) Execute(fid FunctionID, args []byte) (Result, error) {
	s.begin()
	res, err := s.execute(fid, args)
	if err != nil {
		return Result{}, s.finish("execute", fmt.Errorf("hal: execute 0x%04x: %w", uint16(fid), err))
	}
	return res, nil
}

func (s *Session) execute(fid FunctionID, args []byte) (Result, error) {
	s.payload = s.payload[:0]

	if err := s.upload(args); err != nil {
		return Result{}, err
	}

	var req [2]byte
	binary.LittleEndian.PutUint16(req[:], uint16(fid))
	if err := s.send(TypeCmdExecute, 0, req[:]); err != nil {
		return Result{}, err
	}

	m, err := s.Receive(s.scratch[:])
	if err != nil {
		return Result{}, err
	}

	var (
		res      Result
		declared int
		first    []byte
	)
	switch m.Type {
	case TypeAcknowledge:
		return Result{Kind: ResultAck, Data: s.payload}, nil
	case TypeData:
		if len(m.Payload) < 2 {
			return Result{}, fmt.Errorf("%w: DATA reply of %d bytes has no length header", ErrMalformed, len(m.Payload))
		}
		res.Kind = ResultData
		declared = int(binary.LittleEndian.Uint16(m.Payload))
		first = m.Payload[2:]
	case TypeStatus:
		if len(m.Payload) != 2 && len(m.Payload) < 4 {
			return Result{}, fmt.Errorf("%w: STATUS reply of %d bytes", ErrMalformed, len(m.Payload))
		}
		res.Kind = ResultStatus
		res.Status = binary.LittleEndian.Uint16(m.Payload)
		if len(m.Payload) >= 4 {
			declared = int(binary.LittleEndian.Uint16(m.Payload[2:]))
			first = m.Payload[4:]
		}
	default:
		return Result{}, fmt.Errorf("%w: %s in reply to %s", ErrUnexpectedType, m.Type, TypeCmdExecute)
	}

	if declared > PayloadCapacity {
		return Result{}, fmt.Errorf("%w: %w: device declared %d bytes (max %d)",
			ExcRxOverflow, ErrResultTooLarge, declared, PayloadCapacity)
	}
	if len(first) > declared {
		return Result{}, fmt.Errorf("%w: first fragment is %d bytes, declared %d", ExcRxLength, len(first), declared)
	}
	s.payload = append(s.payload, first...)

	if err := s.collect(declared); err != nil {
		return Result{}, err
	}

	res.Data = s.payload
	return res, nil
}

func (s *Session) upload(args []byte) error {
	if len(args) > PayloadCapacity {
		return fmt.Errorf("%w: %d argument bytes (max %d)", ErrPayloadTooLarge, len(args), PayloadCapacity)
	}

	for seq, off := 0, 0; off < len(args); seq, off = seq+1, off+MaxPayload {
		end := min(off+MaxPayload, len(args))

		t := TypeCmdLoad
		if off > 0 {
			t = TypeCmdLoadContinued
		}
		if err := s.expectAck(t, byte(seq), args[off:end]); err != nil {
			return fmt.Errorf("upload fragment %d: %w", seq, err)
		}
	}
	return nil
}

// collect requests result fragments until declared bytes have been accumulated.
func (s *Session) collect(declared int) error {
	for seq := 1; len(s.payload) < declared; seq++ {
		if err := s.send(TypeDataRequest, byte(seq), nil); err != nil {
			return err
		}

		m, err := s.Receive(s.scratch[:])
		if err != nil {
			return err
		}

		switch m.Type {
		case TypeData:
		case TypeAcknowledge:
			return fmt.Errorf("%w: device ended result at %d of %d bytes", ExcRxLength, len(s.payload), declared)
		default:
			return fmt.Errorf("%w: %s in reply to %s", ErrUnexpectedType, m.Type, TypeDataRequest)
		}

		if m.Seq != byte(seq) {
			return fmt.Errorf("%w: fragment sequence %d, want %d", ExcMsgIDErr, m.Seq, byte(seq))
		}
		if len(m.Payload) == 0 {
			return fmt.Errorf("%w: device ended result at %d of %d bytes", ExcRxLength, len(s.payload), declared)
		}
		if len(s.payload)+len(m.Payload) > declared {
			return fmt.Errorf("%w: fragment overruns declared length %d", ExcRxLength, declared)
		}
		s.payload = append(s.payload, m.Payload...)
	}
	return nil
}

func (s *Session) expectAck(t MessageType, seq byte, payload []byte) error {
	if err := s.send(t, seq, payload); err != nil {
		return err
	}

	m, err := s.Receive(s.scratch[:])
	if err != nil {
		return err
	}
	if m.Type != TypeAcknowledge {
		return fmt.Errorf("%w: %s in reply to %s", ErrUnexpectedType, m.Type, t)
	}
	return nil
}
