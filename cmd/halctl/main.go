// Command halctl talks to an MSP430 debug adapter over the HAL protocol.
//
// Usage:
//
//	halctl [flags] <command> [args]
//
// Commands: vcc [mV], fet on|off, sync, reset, versions, exec <fid> [hex], read <addr> <n>,
// write <addr> <hex>, functions, shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seagrayinc/halproto/internal/config"
	"github.com/seagrayinc/halproto/internal/metrics"
	"github.com/seagrayinc/halproto/pkg/fet"
	"github.com/seagrayinc/halproto/pkg/hal"
	"github.com/seagrayinc/halproto/pkg/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "halctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, rest, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		usage(stderr)
		return flag.ErrHelp
	}
	if rest[0] != "shell" {
		c, err := lookup(rest[0])
		if err != nil {
			usage(stderr)
			return err
		}
		if c.local != nil {
			return c.local(cfg.Functions, rest[1:], stdout)
		}
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With(slog.String("session", uuid.NewString()))

	if cfg.MetricsAddr != "" {
		serveMetrics(ctx, cfg.MetricsAddr, logger)
	}

	port, err := transport.Open(ctx, cfg.Link)
	if err != nil {
		return err
	}
	defer port.Close()
	logger.Debug("link open", slog.String("kind", string(cfg.Link.Kind)), slog.String("device", cfg.Link.Device))

	s := hal.New(port, cfg.Flags(),
		hal.WithTimeout(cfg.Timeout),
		hal.WithLogger(logger),
		hal.WithObserver(metrics.NewObserver()),
	)
	f := fet.New(s, cfg.Functions, logger)

	if rest[0] == "shell" {
		return shell(ctx, f, stdin, stdout, logger)
	}
	return dispatch(ctx, f, rest, stdout)
}

func parseFlags(args []string, stderr io.Writer) (config.Config, []string, error) {
	fs := flag.NewFlagSet("halctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr); fs.PrintDefaults() }

	var (
		configPath = fs.String("config", "", "TOML configuration file")
		link       = fs.String("link", "", "link kind: serial, usb, hid or tcp")
		device     = fs.String("device", "", "serial device, HID path or TCP address")
		baud       = fs.Int("baud", 0, "serial baud rate")
		timeout    = fs.Duration("timeout", 0, "per-frame receive timeout")
		checksum   = fs.Bool("checksum", true, "append and verify frame checksums")
		verbose    = fs.Bool("v", false, "trace every frame")
		metricsAt  = fs.String("metrics", "", "serve Prometheus metrics on this address")
	)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, nil, err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return config.Config{}, nil, err
		}
	}

	var ferr error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "link":
			kind, err := config.ParseKind(*link)
			if err != nil {
				ferr = err
			}
			cfg.Link.Kind = kind
		case "device":
			cfg.Link.Device = *device
		case "baud":
			cfg.Link.BaudRate = *baud
		case "timeout":
			cfg.Timeout = *timeout
		case "checksum":
			cfg.Checksum = *checksum
		case "v":
			if *verbose {
				cfg.LogLevel = slog.LevelDebug
			}
		case "metrics":
			cfg.MetricsAddr = *metricsAt
		}
	})
	if ferr != nil {
		return config.Config{}, nil, ferr
	}

	return cfg, fs.Args(), nil
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", slog.Any("error", err))
		}
	}()
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: halctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandNames() {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(w, "  %-10s %s\n", "shell", "read commands from stdin, one per line")
	fmt.Fprintln(w)
}
