package jena

import (
	"io"
	"time"
)

// Transport is a single request/response session with the controller.
// This abstraction allows for testing with mock implementations.
//
// The NV 40 protocol is strictly one command, one answer; the controller
// opens a fresh transport per exchange and closes it before returning.
type Transport interface {
	io.ReadWriteCloser

	// SetReadTimeout sets the read timeout duration.
	SetReadTimeout(timeout time.Duration) error
}
