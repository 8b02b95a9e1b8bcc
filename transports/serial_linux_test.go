//go:build linux

package transports_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"

	"github.com/martinks/jena"
)

// fakeStage answers NV 40 commands on the pty master, emulating a stage
// with 400 units of travel. It runs until the master is closed.
func fakeStage(master *os.File) {
	var (
		buf      [64]byte
		line     strings.Builder
		position float64
	)

	for {
		n, err := master.Read(buf[:])
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			if b != '\r' {
				line.WriteByte(b)
				continue
			}
			cmd := line.String()
			line.Reset()

			var reply string
			switch {
			case cmd == "cl" || cmd == "ol" || cmd == "i1" || cmd == "i0":
				reply = cmd
			case cmd == "rd":
				reply = fmt.Sprintf("rd,%.2f", position)
			case strings.HasPrefix(cmd, "wr,"):
				v, convErr := strconv.ParseFloat(strings.TrimSpace(cmd[3:]), 64)
				switch {
				case convErr != nil:
					reply = "err,5"
				case v < 0 || v > 400:
					reply = "err,7"
				default:
					position = v
					reply = "ok"
				}
			default:
				reply = "err,1"
			}

			if _, err := master.Write([]byte(reply + "\r\n")); err != nil {
				return
			}
		}
	}
}

func TestController_OverPTY(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	go fakeStage(master)

	c, err := jena.New(jena.Config{
		Port:    slave.Name(),
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, c.SetPosition(ctx, 100))

	pos, err := c.Position(ctx)
	require.NoError(t, err)
	require.InDelta(t, 100.0, pos, 1.0)

	err = c.SetPosition(ctx, 1000)
	require.Error(t, err)
	require.True(t, jena.IsOutOfRange(err))

	require.NoError(t, c.SetRemoteControl(ctx, false))
}

func TestController_SessionOverPTY(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	go fakeStage(master)

	c, err := jena.New(jena.Config{
		Port:    slave.Name(),
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	err = c.Session(context.Background(), func(ctx context.Context) error {
		if err := c.SetPosition(ctx, 50); err != nil {
			return err
		}
		pos, err := c.Position(ctx)
		if err != nil {
			return err
		}
		require.InDelta(t, 50.0, pos, 1.0)
		return nil
	})
	require.NoError(t, err)
}
