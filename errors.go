package jena

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrPortRequired      = errors.New("serial port path is required")
	ErrEmptyResponse     = errors.New("no response from controller")
	ErrMalformedResponse = errors.New("malformed response")
)

// deviceErrors maps the fixed NV 40 error tokens to their descriptions.
// The table is immutable domain data, shared by all controllers.
var deviceErrors = map[string]string{
	"err,1": "unknown command",
	"err,2": "too many characters in the command",
	"err,3": "too many characters in the parameter",
	"err,4": "too many parameters",
	"err,5": "wrong character in parameter",
	"err,6": "wrong separator",
	"err,7": "position out of range (overload)",
}

// CommError represents a transport-level failure.
type CommError struct {
	Op  string // Operation that failed (e.g., "open", "write", "read")
	Err error  // Underlying error
}

func (e *CommError) Error() string {
	return fmt.Sprintf("communication error during %s: %v", e.Op, e.Err)
}

func (e *CommError) Unwrap() error {
	return e.Err
}

// DeviceError is an error reported by the controller itself, one of the
// seven fixed tokens of the NV 40 protocol.
type DeviceError struct {
	Code string // Raw token, e.g. "err,7"
	Desc string // Human-readable description
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error %s: %s", e.Code, e.Desc)
}

// ProtocolError indicates a response that does not match the expected
// shape for the command that was sent.
type ProtocolError struct {
	Op       string // Operation whose response was malformed
	Response string // Trimmed response as received
	Err      error  // ErrEmptyResponse or ErrMalformedResponse
}

func (e *ProtocolError) Error() string {
	if e.Response == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %q", e.Op, e.Err, e.Response)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// checkResponse returns the DeviceError matching the trimmed response,
// or nil if the response is not an error token.
func checkResponse(resp string) error {
	if desc, ok := deviceErrors[resp]; ok {
		return &DeviceError{Code: resp, Desc: desc}
	}
	return nil
}

// IsDeviceError returns true if the error chain contains a DeviceError.
func IsDeviceError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr)
}

// AsDeviceError extracts a DeviceError from an error chain, if present.
func AsDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr, true
	}
	return nil, false
}

// IsOutOfRange returns true if the error is the controller's overload
// response, raised when a commanded position exceeds the travel range.
func IsOutOfRange(err error) bool {
	devErr, ok := AsDeviceError(err)
	return ok && devErr.Code == "err,7"
}
