package hal

import (
	"encoding/binary"
	"fmt"
)

// ExecuteLoop uploads args and starts fid running continuously on the device. The device
// acknowledges the start; the loop keeps running until PauseLoop, Kill or KillAll.
func (s *Session) ExecuteLoop(fid FunctionID, args []byte) error {
	s.begin()
	if err := s.upload(args); err != nil {
		return s.finish("control", fmt.Errorf("hal: execute loop 0x%04x: %w", uint16(fid), err))
	}
	return s.control(TypeCmdExecuteLoop, fid)
}

func (s *Session) PauseLoop(fid FunctionID) error {
	return s.control(TypeCmdPauseLoop, fid)
}

func (s *Session) ResumeLoop(fid FunctionID) error {
	return s.control(TypeCmdResumeLoop, fid)
}

// Kill stops a running loop.
func (s *Session) Kill(fid FunctionID) error {
	return s.control(TypeCmdKill, fid)
}

// KillAll stops every running loop.
func (s *Session) KillAll() error {
	if err := s.expectAck(TypeCmdKillAll, 0, nil); err != nil {
		return fmt.Errorf("hal: %s: %w", TypeCmdKillAll, err)
	}
	return nil
}

// Sync checks that the device is listening.
func (s *Session) Sync() error {
	s.begin()
	if err := s.expectAck(TypeCmdSync, 0, nil); err != nil {
		return s.finish("control", fmt.Errorf("hal: %s: %w", TypeCmdSync, err))
	}
	return nil
}

// ComReset asks the device to reset its side of the link.
func (s *Session) ComReset() error {
	s.begin()
	if err := s.expectAck(TypeCmdComReset, 0, nil); err != nil {
		return s.finish("control", fmt.Errorf("hal: %s: %w", TypeCmdComReset, err))
	}
	return nil
}

func (s *Session) control(t MessageType, fid FunctionID) error {
	var req [2]byte
	binary.LittleEndian.PutUint16(req[:], uint16(fid))
	s.begin()
	if err := s.expectAck(t, 0, req[:]); err != nil {
		return s.finish("control", fmt.Errorf("hal: %s 0x%04x: %w", t, uint16(fid), err))
	}
	return nil
}
