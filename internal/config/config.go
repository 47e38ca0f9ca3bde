// Package config loads halctl settings from a TOML file.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/seagrayinc/halproto/pkg/fet"
	"github.com/seagrayinc/halproto/pkg/hal"
	"github.com/seagrayinc/halproto/pkg/transport"
)

type Config struct {
	Link     transport.Config
	Checksum bool
	Timeout  time.Duration
	LogLevel slog.Level

	// MetricsAddr, when set, is where halctl serves Prometheus metrics.
	MetricsAddr string

	Functions fet.FunctionMap
}

func Default() Config {
	return Config{
		Link: transport.Config{
			Kind:      transport.KindSerial,
			Device:    "/dev/ttyACM0",
			BaudRate:  transport.DefaultBaudRate,
			VendorID:  transport.DefaultVendorID,
			ProductID: transport.DefaultProductID,
		},
		Checksum:  true,
		Timeout:   hal.DefaultTimeout,
		LogLevel:  slog.LevelInfo,
		Functions: fet.DefaultFunctionMap(),
	}
}

// Flags returns the session flags the config selects.
func (c Config) Flags() hal.Flags {
	if c.Checksum {
		return hal.FlagChecksum
	}
	return 0
}

type fileConfig struct {
	Link        string            `toml:"link"`
	Device      string            `toml:"device"`
	BaudRate    int               `toml:"baud_rate"`
	VendorID    uint16            `toml:"vendor_id"`
	ProductID   uint16            `toml:"product_id"`
	DialTimeout string            `toml:"dial_timeout"`
	Checksum    bool              `toml:"checksum"`
	Timeout     string            `toml:"timeout"`
	LogLevel    string            `toml:"log_level"`
	MetricsAddr string            `toml:"metrics_addr"`
	Functions   map[string]uint16 `toml:"functions"`
}

// Load reads path over the defaults. Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("link") {
		kind, err := ParseKind(raw.Link)
		if err != nil {
			return Config{}, err
		}
		cfg.Link.Kind = kind
	}
	if meta.IsDefined("device") {
		cfg.Link.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud_rate") {
		cfg.Link.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("vendor_id") {
		cfg.Link.VendorID = raw.VendorID
	}
	if meta.IsDefined("product_id") {
		cfg.Link.ProductID = raw.ProductID
	}
	if meta.IsDefined("dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DialTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.Link.DialTimeout = d
	}

	if meta.IsDefined("checksum") {
		cfg.Checksum = raw.Checksum
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Config{}, fmt.Errorf("parse log_level: %w", err)
		}
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("functions") {
		if err := cfg.Functions.Apply(raw.Functions); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	return cfg, nil
}

func ParseKind(s string) (transport.Kind, error) {
	switch k := transport.Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case transport.KindSerial, transport.KindUSB, transport.KindHID, transport.KindTCP:
		return k, nil
	default:
		return "", fmt.Errorf("unknown link %q (want serial, usb, hid or tcp)", s)
	}
}
