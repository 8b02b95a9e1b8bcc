package jena

import (
	"fmt"
	"strconv"
	"strings"
)

// NV 40 command set. Commands are bare ASCII words terminated by a
// single carriage return; the controller answers one line per command.
const (
	cmdClosedLoop    = "cl"
	cmdOpenLoop      = "ol"
	cmdRemoteOn      = "i1"
	cmdRemoteOff     = "i0"
	cmdReadPosition  = "rd"
	cmdWritePosition = "wr"

	terminator = "\r"

	// maxResponseLen bounds a single read; the longest answer the
	// controller produces is well under this.
	maxResponseLen = 100
)

// formatPosition builds the write-position command. The controller
// expects exactly two decimal places.
func formatPosition(value float64) string {
	return fmt.Sprintf("%s, %.2f", cmdWritePosition, value)
}

// parsePosition extracts the numeric field from an rd answer of the
// form "<prefix>,<value>". Anything else is a protocol violation.
func parsePosition(resp string) (float64, error) {
	if resp == "" {
		return 0, &ProtocolError{Op: "read position", Err: ErrEmptyResponse}
	}

	_, field, ok := strings.Cut(resp, ",")
	if !ok {
		return 0, &ProtocolError{Op: "read position", Response: resp, Err: ErrMalformedResponse}
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, &ProtocolError{Op: "read position", Response: resp, Err: ErrMalformedResponse}
	}

	return value, nil
}

// loopCommand returns the command selecting closed or open loop mode.
func loopCommand(closed bool) string {
	if closed {
		return cmdClosedLoop
	}
	return cmdOpenLoop
}

// remoteCommand returns the command selecting remote or manual control.
func remoteCommand(enabled bool) string {
	if enabled {
		return cmdRemoteOn
	}
	return cmdRemoteOff
}
