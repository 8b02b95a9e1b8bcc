package transports

import (
	"errors"
	"io"
	"testing"
)

func TestOpenSerial_RequiresPort(t *testing.T) {
	if _, err := OpenSerial(SerialConfig{}); err == nil {
		t.Fatal("expected error for empty port path")
	}
}

func TestMock_RecordsWritesAndScriptsReads(t *testing.T) {
	m := &Mock{ReadData: []byte("rd,1.00\r\n")}

	if _, err := m.Write([]byte("rd\r")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := string(m.WriteData); got != "rd\r" {
		t.Errorf("WriteData: got %q, want %q", got, "rd\r")
	}

	buf := make([]byte, 16)
	n, err := m.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := string(buf[:n]); got != "rd,1.00\r\n" {
		t.Errorf("Read: got %q", got)
	}

	if _, err := m.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("exhausted read: got %v, want io.EOF", err)
	}

	if err := m.Close(); err != nil || !m.Closed {
		t.Error("Close did not mark the mock closed")
	}
}

func TestMock_ScriptedExchange(t *testing.T) {
	m := &Mock{
		Respond: func(cmd string) string {
			if cmd == "rd" {
				return "rd,7.25"
			}
			return "err,1"
		},
	}

	if _, err := m.Write([]byte("rd\r")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	buf := make([]byte, 32)
	n, err := m.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := string(buf[:n]); got != "rd,7.25\r\n" {
		t.Errorf("answer: got %q, want %q", got, "rd,7.25\r\n")
	}

	// A write without the CR terminator is not a complete command and
	// must not trigger an answer.
	if _, err := m.Write([]byte("rd")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := m.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("read after partial write: got %v, want io.EOF", err)
	}
}
