package transports

import (
	"io"
	"strings"
	"time"
)

// Mock implements the controller's Transport interface for testing.
//
// Reads serve ReadData until it is exhausted. When Respond is set, every
// CR-terminated command written to the mock is answered by appending
// Respond's return value plus CRLF to ReadData, scripting a full
// command/answer exchange without a device.
type Mock struct {
	ReadData    []byte
	ReadErr     error
	WriteData   []byte
	WriteErr    error
	Closed      bool
	ReadTimeout time.Duration

	// Respond maps a command (without its CR terminator) to the answer
	// line the device would send back.
	Respond func(cmd string) string

	// ReadFunc allows custom read behavior for complex tests
	ReadFunc func(p []byte) (int, error)
}

func (m *Mock) Read(p []byte) (int, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}
	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	n := copy(p, m.ReadData)
	m.ReadData = m.ReadData[n:]
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (m *Mock) Write(p []byte) (int, error) {
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	m.WriteData = append(m.WriteData, p...)

	if m.Respond != nil {
		if cmd, ok := strings.CutSuffix(string(p), "\r"); ok {
			m.ReadData = append(m.ReadData, []byte(m.Respond(cmd)+"\r\n")...)
		}
	}

	return len(p), nil
}

func (m *Mock) Close() error {
	m.Closed = true
	return nil
}

func (m *Mock) SetReadTimeout(timeout time.Duration) error {
	m.ReadTimeout = timeout
	return nil
}
