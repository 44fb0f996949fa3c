// Command wsact-probe is an interactive WebSocket connection probe.
//
// It connects to an endpoint, keeps the connection alive across
// transport loss, prints every inbound frame and lets you push messages
// from a command prompt. Wire traffic can be captured to a CBOR log for
// later inspection.
//
// Usage:
//
//	wsact-probe [flags]
//
// Flags:
//
//	-config string     Configuration file path (YAML)
//	-host string       Endpoint host
//	-path string       Upgrade request path (default "/")
//	-port int          Endpoint port (default 443 TLS, 80 TCP)
//	-tcp               Use plaintext TCP instead of TLS
//	-insecure          Skip TLS certificate verification
//	-subprotocols      Comma-separated subprotocols to offer
//	-keepalive         Liveness ping interval (default 30s, 0 disables)
//	-capture string    Write wire events to this file (CBOR)
//	-log-level string  Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Probe a public echo endpoint
//	wsact-probe -host echo.example.com -path /ws
//
//	# Local development server, no TLS, full wire capture
//	wsact-probe -host localhost -port 8080 -tcp -capture session.wlog -log-level debug
//
//	# Endpoint described by a config file
//	wsact-probe -config probe.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wsact/wsact-go/pkg/actor"
	"github.com/wsact/wsact-go/pkg/config"
	"github.com/wsact/wsact-go/pkg/wirelog"
)

type options struct {
	ConfigFile   string
	Host         string
	Path         string
	Port         int
	TCP          bool
	Insecure     bool
	Subprotocols string
	KeepAlive    time.Duration
	Capture      string
	LogLevel     string
}

var opts options

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&opts.Host, "host", "", "Endpoint host")
	flag.StringVar(&opts.Path, "path", "/", "Upgrade request path")
	flag.IntVar(&opts.Port, "port", 0, "Endpoint port (default 443 TLS, 80 TCP)")
	flag.BoolVar(&opts.TCP, "tcp", false, "Use plaintext TCP instead of TLS")
	flag.BoolVar(&opts.Insecure, "insecure", false, "Skip TLS certificate verification")
	flag.StringVar(&opts.Subprotocols, "subprotocols", "", "Comma-separated subprotocols to offer")
	flag.DurationVar(&opts.KeepAlive, "keepalive", 0, "Liveness ping interval (0 = default)")
	flag.StringVar(&opts.Capture, "capture", "", "Write wire events to this file (CBOR)")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	cfg, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	probe, err := newProbe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start prompt: %v\n", err)
		os.Exit(1)
	}
	defer probe.Close()

	setupLogging(opts.LogLevel, probe)

	wlog, closeWlog, err := buildWireLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open capture file: %v\n", err)
		os.Exit(1)
	}
	defer closeWlog()

	act, err := actor.Start(*cfg, probe,
		actor.WithWireLog(wlog),
		actor.WithOutageGuard(time.Minute, func() {
			slog.Warn("outage exceeds one minute, still retrying")
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start connection: %v\n", err)
		os.Exit(1)
	}
	probe.Bind(act)

	ctx, cancel := context.WithCancel(context.Background())
	go probe.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		// Quit command.
	case <-act.Done():
		if err := act.Err(); err != nil {
			slog.Error("connection failed", slog.Any("error", err))
		}
	}

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := act.Stop(stopCtx); err != nil {
		slog.Warn("shutdown timed out", slog.Any("error", err))
	}
}

// buildConfig assembles the connection configuration from the config
// file (if any) and flag overrides.
func buildConfig() (*config.Config, error) {
	var cfg config.Config

	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Path != "" && (cfg.Path == "" || opts.Path != "/") {
		cfg.Path = opts.Path
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.TCP {
		cfg.Transport.Kind = config.TransportTCP
	}
	if opts.Insecure {
		cfg.Transport.TLS.InsecureSkipVerify = true
	}
	if opts.Subprotocols != "" {
		cfg.Handshake.Subprotocols = strings.Split(opts.Subprotocols, ",")
	}
	if opts.KeepAlive != 0 {
		cfg.Handshake.KeepAlive = opts.KeepAlive
	}

	return config.New(cfg)
}

// buildWireLog assembles the wire event logger per the capture flag.
func buildWireLog() (wirelog.Logger, func(), error) {
	if opts.Capture == "" {
		return wirelog.NoopLogger{}, func() {}, nil
	}
	fl, err := wirelog.NewFileLogger(opts.Capture)
	if err != nil {
		return nil, nil, err
	}
	return fl, func() { fl.Close() }, nil
}

// setupLogging routes slog through the prompt so log lines do not
// clobber the input line.
func setupLogging(level string, probe *Probe) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(probe.Stdout(), &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
