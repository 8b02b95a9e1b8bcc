// Package jena controls piezosystem jena NV 40 piezoelectric positioning
// controllers over a serial line.
//
// The NV 40 speaks a line-oriented ASCII protocol: one command, one
// answer, carriage-return terminated, 9600 baud 8N1. The Controller
// opens the port for the duration of a single exchange and closes it
// again, so no long-lived resource is held between calls.
package jena

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/martinks/jena/transports"
)

// DefaultTimeout is the read timeout used when Config.Timeout is zero.
const DefaultTimeout = 500 * time.Millisecond

// Config holds configuration for creating a new Controller.
type Config struct {
	// Port is the serial port path (e.g., "/dev/ttyUSB0" or "COM3").
	// Ignored if Open is provided.
	Port string

	// Timeout bounds the wait for a single answer. Default is 500ms.
	Timeout time.Duration

	// OpenLoop selects open loop mode at construction. The zero value
	// selects closed loop, which is the mode the device powers up in
	// for positioning in physical units.
	OpenLoop bool

	// Open overrides how a transport is opened for each exchange.
	// If nil, Port is opened as a serial port.
	Open func() (Transport, error)

	// Logger receives a debug event per exchange. If nil, logging is
	// disabled.
	Logger *zerolog.Logger
}

// Controller drives a single NV 40 over its serial line.
//
// A Controller holds only immutable configuration; it does not cache
// any device-side state. Callers sharing one physical port across
// goroutines or processes must serialize access themselves.
type Controller struct {
	port    string
	timeout time.Duration
	open    func() (Transport, error)
	log     zerolog.Logger
}

// New creates a Controller and issues the initial loop-mode command
// (closed loop unless cfg.OpenLoop is set). It fails if the port cannot
// be opened for that first exchange.
func New(cfg Config) (*Controller, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	open := cfg.Open
	if open == nil {
		if cfg.Port == "" {
			return nil, ErrPortRequired
		}
		port, timeout := cfg.Port, cfg.Timeout
		open = func() (Transport, error) {
			return transports.OpenSerial(transports.SerialConfig{
				Port:    port,
				Timeout: timeout,
			})
		}
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	c := &Controller{
		port:    cfg.Port,
		timeout: cfg.Timeout,
		open:    open,
		log:     log,
	}

	if _, err := c.execute(context.Background(), loopCommand(!cfg.OpenLoop)); err != nil {
		return nil, err
	}

	return c, nil
}

// Port returns the configured serial port path.
func (c *Controller) Port() string {
	return c.port
}

// SetPosition commands the controller to move to the given position, in
// µm/µrad (closed loop) or volts (open loop).
//
// Setting a position always enables remote control first, which disables
// the front-panel controls. Use SetRemoteControl(ctx, false) or Session
// to hand the device back to manual control.
func (c *Controller) SetPosition(ctx context.Context, value float64) error {
	if err := c.SetRemoteControl(ctx, true); err != nil {
		return err
	}
	_, err := c.execute(ctx, formatPosition(value))
	return err
}

// Position reads the current position, in µm/µrad (closed loop) or
// volts (open loop).
func (c *Controller) Position(ctx context.Context) (float64, error) {
	resp, err := c.execute(ctx, cmdReadPosition)
	if err != nil {
		return 0, err
	}
	return parsePosition(resp)
}

// SetClosedLoop switches between closed loop (true) and open loop
// (false) operation.
func (c *Controller) SetClosedLoop(ctx context.Context, enabled bool) error {
	_, err := c.execute(ctx, loopCommand(enabled))
	return err
}

// SetRemoteControl switches between remote (true) and manual (false)
// control. While remote control is enabled the front panel is locked
// out.
func (c *Controller) SetRemoteControl(ctx context.Context, enabled bool) error {
	_, err := c.execute(ctx, remoteCommand(enabled))
	return err
}

// execute performs one command exchange: open, write command + CR, read
// the bounded answer, close. The trimmed answer is checked against the
// fixed error table before being returned.
func (c *Controller) execute(ctx context.Context, command string) (string, error) {
	start := time.Now()

	t, err := c.open()
	if err != nil {
		return "", &CommError{Op: "open", Err: err}
	}
	defer t.Close()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := t.Write([]byte(command + terminator)); err != nil {
		return "", &CommError{Op: "write", Err: err}
	}

	raw, err := c.readAnswer(ctx, t)
	if err != nil {
		return "", err
	}

	resp := strings.TrimRight(raw, " \t\r\n")

	c.log.Debug().
		Str("command", command).
		Str("response", resp).
		Dur("took", time.Since(start)).
		Msg("exchange")

	if err := checkResponse(resp); err != nil {
		return "", err
	}

	return resp, nil
}

// readAnswer reads up to maxResponseLen bytes within the configured
// timeout. A timed-out read returns whatever arrived, possibly nothing;
// the per-command parsers decide whether that is acceptable.
func (c *Controller) readAnswer(ctx context.Context, t Transport) (string, error) {
	buf := make([]byte, maxResponseLen)
	total := 0
	deadline := time.Now().Add(c.timeout)

	for total < maxResponseLen {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if total > 0 {
			// The answer is a single short line; once bytes have
			// arrived, wait only briefly for a continuation.
			remaining = min(remaining, 20*time.Millisecond)
		}
		t.SetReadTimeout(remaining)

		n, err := t.Read(buf[total:])
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", &CommError{Op: "read", Err: err}
		}
		if n == 0 {
			if total > 0 {
				break
			}
			continue
		}
		total += n

		if buf[total-1] == '\n' {
			break
		}
	}

	return string(buf[:total]), nil
}
