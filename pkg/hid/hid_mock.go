package hid

import (
	"bytes"
	"context"
	"sync"
)

// MockHID is an in-memory Device. Reports handed to Emit are delivered by PollReports; reports
// written by the host are recorded and, when OnWrite is set, answered.
type MockHID struct {
	// OnWrite computes the device's replies to a written report.
	OnWrite func(Report) []Report

	// WriteErr, when set, fails every WriteReport.
	WriteErr error

	mu      sync.Mutex
	reports chan Report
	written []Report
	closed  bool
}

func NewMockHID() *MockHID {
	return &MockHID{
		reports: make(chan Report, 256),
	}
}

func (m *MockHID) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.reports)
	}
	return nil
}

func (m *MockHID) WriteReport(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}

	r = Report{ID: r.ID, Data: bytes.Clone(r.Data)}
	m.mu.Lock()
	m.written = append(m.written, r)
	m.mu.Unlock()

	if m.OnWrite != nil {
		for _, reply := range m.OnWrite(r) {
			m.Emit(reply)
		}
	}
	return nil
}

func (m *MockHID) PollReports(ctx context.Context) <-chan Report {
	go func() {
		<-ctx.Done()
		_ = m.Close()
	}()

	return m.reports
}

// Emit queues r as an input report. Reports emitted after Close are dropped.
func (m *MockHID) Emit(r Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.reports <- Report{ID: r.ID, Data: bytes.Clone(r.Data)}
}

// Written returns the reports written so far.
func (m *MockHID) Written() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Report(nil), m.written...)
}
