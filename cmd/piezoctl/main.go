// piezoctl drives an NV 40 piezo controller from the command line.
//
// One-shot usage:
//
//	piezoctl --port /dev/ttyUSB0 set 100
//	piezoctl get
//	piezoctl loop closed
//	piezoctl remote off
//	piezoctl monitor --interval 2s
//
// Without arguments it starts an interactive prompt and hands the device
// back to manual control on exit.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/martinks/jena"
)

var logger zerolog.Logger

func logInit() {
	var level zerolog.Level
	switch strings.ToLower(viper.GetString("log-level")) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	default:
		level = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if file := viper.GetString("log-file"); file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}

	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func setupConfig() {
	pflag.String("port", "", "serial port of the controller (e.g. /dev/ttyUSB0)")
	pflag.Duration("timeout", jena.DefaultTimeout, "answer timeout")
	pflag.Bool("open-loop", false, "start in open loop mode")
	pflag.Duration("interval", time.Second, "poll interval for monitor")
	pflag.String("log-level", "info", "log level (trace|debug|info|warn)")
	pflag.String("log-file", "", "log to a rotated file instead of stderr")
	pflag.Parse()

	viper.SetDefault("port", "/dev/ttyUSB0")
	viper.SetDefault("timeout", jena.DefaultTimeout)
	viper.SetDefault("interval", time.Second)

	viper.SetConfigName("piezoctl")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/piezoctl")
	viper.AddConfigPath("/etc/piezoctl")
	if err := viper.ReadInConfig(); err != nil {
		// Running without a config file is fine; flags and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "unable to read config file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("PIEZOCTL")
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		fmt.Fprintf(os.Stderr, "unable to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	setupConfig()
	logInit()

	ctrl, err := jena.New(jena.Config{
		Port:     viper.GetString("port"),
		Timeout:  viper.GetDuration("timeout"),
		OpenLoop: viper.GetBool("open-loop"),
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("port", viper.GetString("port")).Msg("cannot reach controller")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := pflag.Args()
	if len(args) == 0 {
		repl(ctx, ctrl)
		return
	}

	if err := runCommand(ctx, ctrl, args); err != nil {
		logger.Fatal().Err(err).Msg("command failed")
	}
}

func runCommand(ctx context.Context, ctrl *jena.Controller, args []string) error {
	switch args[0] {
	case "get":
		pos, err := ctrl.Position(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%.2f\n", pos)
		return nil

	case "set":
		if len(args) != 2 {
			return fmt.Errorf("usage: set <position>")
		}
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid position %q", args[1])
		}
		// Scoped session: the front panel is handed back before the
		// process exits, also when the move fails.
		return ctrl.Session(ctx, func(ctx context.Context) error {
			if err := ctrl.SetPosition(ctx, value); err != nil {
				return err
			}
			pos, err := ctrl.Position(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%.2f\n", pos)
			return nil
		})

	case "loop":
		if len(args) != 2 || (args[1] != "closed" && args[1] != "open") {
			return fmt.Errorf("usage: loop <closed|open>")
		}
		return ctrl.SetClosedLoop(ctx, args[1] == "closed")

	case "remote":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return fmt.Errorf("usage: remote <on|off>")
		}
		return ctrl.SetRemoteControl(ctx, args[1] == "on")

	case "monitor":
		return monitor(ctx, ctrl)

	default:
		return fmt.Errorf("unknown command %q (get|set|loop|remote|monitor)", args[0])
	}
}

// monitor polls the position until interrupted. The poll interval is
// re-read from the config every cycle, so edits to the config file take
// effect while it runs.
func monitor(ctx context.Context, ctrl *jena.Controller) error {
	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Info().
			Str("file", e.Name).
			Dur("interval", viper.GetDuration("interval")).
			Msg("config reloaded")
	})
	viper.WatchConfig()

	for {
		pos, err := ctrl.Position(ctx)
		switch {
		case err == nil:
			fmt.Printf("%s  %.2f\n", time.Now().Format(time.RFC3339), pos)
		case ctx.Err() != nil:
			return nil
		default:
			logger.Error().Err(err).Msg("position read failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(viper.GetDuration("interval")):
		}
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("get           - Read the current position")
	fmt.Println("set N         - Move to position N (enables remote control)")
	fmt.Println("loop closed   - Switch to closed loop (positions in um/urad)")
	fmt.Println("loop open     - Switch to open loop (values in volts)")
	fmt.Println("remote on/off - Remote vs. front-panel control")
	fmt.Println("help          - Show this help")
	fmt.Println("quit          - Restore manual control and exit")
}

func repl(ctx context.Context, ctrl *jena.Controller) {
	fmt.Printf("piezoctl (connected to %s)\n", ctrl.Port())
	fmt.Println("Type 'help' for commands")

	defer func() {
		// The stage returns to its pre-remote position here.
		if err := ctrl.SetRemoteControl(context.Background(), false); err != nil {
			logger.Warn().Err(err).Msg("could not restore manual control")
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			printHelp()

		case "get":
			pos, err := ctrl.Position(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("get failed")
				continue
			}
			fmt.Printf("Position: %.2f\n", pos)

		case "set":
			if len(parts) != 2 {
				fmt.Println("Usage: set <position>")
				continue
			}
			value, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				fmt.Println("Invalid position value")
				continue
			}
			if err := ctrl.SetPosition(ctx, value); err != nil {
				if jena.IsOutOfRange(err) {
					fmt.Println("Position outside the travel range")
					continue
				}
				logger.Error().Err(err).Msg("set failed")
			}

		case "loop":
			if len(parts) != 2 || (parts[1] != "closed" && parts[1] != "open") {
				fmt.Println("Usage: loop <closed|open>")
				continue
			}
			if err := ctrl.SetClosedLoop(ctx, parts[1] == "closed"); err != nil {
				logger.Error().Err(err).Msg("loop failed")
			}

		case "remote":
			if len(parts) != 2 || (parts[1] != "on" && parts[1] != "off") {
				fmt.Println("Usage: remote <on|off>")
				continue
			}
			if err := ctrl.SetRemoteControl(ctx, parts[1] == "on"); err != nil {
				logger.Error().Err(err).Msg("remote failed")
			}

		case "quit":
			return

		default:
			fmt.Println("Unknown command. Type 'help' for available commands")
		}
	}
}
