// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package config provides the clipwire server configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultAddress          = "tcp://127.0.0.1:3459"
	defaultLogLevel         = "NOTICE"
	defaultHandshakeTimeout = 30 * 1000  // 30 sec.
	defaultIdleTimeout      = 300 * 1000 // 5 min.
	defaultSendQueueSize    = 64
	defaultMaxFrameSize     = 16 * 1024 * 1024 // 16 MiB.
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// Server is the clipwire server configuration.
type Server struct {
	// Addresses are the listener addresses to bind to for incoming
	// connections, as URLs with a tcp:// or quic:// scheme.
	Addresses []string

	// MetricsAddress is the address/port to bind the prometheus metrics
	// endpoint to.  If omitted the metrics endpoint is disabled.
	MetricsAddress string

	// DataDir is the absolute path to the server's state files.
	DataDir string
}

func (sCfg *Server) validate() error {
	if sCfg.Addresses != nil {
		for _, v := range sCfg.Addresses {
			u, err := url.Parse(v)
			if err != nil {
				return fmt.Errorf("config: Server: Address '%v' is invalid: %v", v, err)
			}
			switch u.Scheme {
			case "tcp", "tcp4", "tcp6", "quic":
			default:
				return fmt.Errorf("config: Server: Address '%v' has unsupported scheme '%v'", v, u.Scheme)
			}
			if u.Port() == "" {
				return fmt.Errorf("config: Server: Address '%v' is invalid: Must contain Port", v)
			}
		}
	} else {
		sCfg.Addresses = []string{defaultAddress}
	}

	if sCfg.DataDir != "" && !filepath.IsAbs(sCfg.DataDir) {
		return fmt.Errorf("config: Server: DataDir '%v' is not an absolute path", sCfg.DataDir)
	}
	if sCfg.MetricsAddress != "" {
		if _, err := netip.ParseAddrPort(sCfg.MetricsAddress); err != nil {
			return fmt.Errorf("config: Server: MetricsAddress '%v' is invalid: %v", sCfg.MetricsAddress, err)
		}
	}
	return nil
}

// Debug is the clipwire server debug configuration.
type Debug struct {
	// HandshakeTimeout specifies the maximum time a connection can take for
	// the link protocol handshake in milliseconds.
	HandshakeTimeout int

	// IdleTimeout specifies how long a connection may sit without traffic
	// before it is torn down, in milliseconds.  A value <= 0 disables the
	// idle check.
	IdleTimeout int

	// MaxFrameSize is the maximum accepted wire frame length in bytes.
	MaxFrameSize int

	// SendQueueSize is the per-session outbound queue depth.  Updates to a
	// session whose queue is full are dropped.
	SendQueueSize int
}

func (dCfg *Debug) applyDefaults() {
	if dCfg.HandshakeTimeout <= 0 {
		dCfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if dCfg.IdleTimeout == 0 {
		dCfg.IdleTimeout = defaultIdleTimeout
	}
	if dCfg.MaxFrameSize <= 0 {
		dCfg.MaxFrameSize = defaultMaxFrameSize
	}
	if dCfg.SendQueueSize <= 0 {
		dCfg.SendQueueSize = defaultSendQueueSize
	}
}

func (dCfg *Debug) validate() error {
	// The wire frame length prefix is a u32.
	if int64(dCfg.MaxFrameSize) > math.MaxUint32 {
		return fmt.Errorf("config: Debug: MaxFrameSize '%v' exceeds the wire frame limit", dCfg.MaxFrameSize)
	}
	return nil
}

// Logging is the clipwire server logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl // Force uppercase.
	return nil
}

// Config is the top level clipwire server configuration.
type Config struct {
	Server  *Server
	Logging *Logging
	Debug   *Debug
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration.  Most people should call one of the Load variants
// instead.
func (cfg *Config) FixupAndValidate() error {
	// The Server section is mandatory, everything else is optional.
	if cfg.Server == nil {
		return errors.New("config: No Server block was present")
	}
	if cfg.Debug == nil {
		cfg.Debug = &Debug{}
	}
	if cfg.Logging == nil {
		cfg.Logging = &defaultLogging
	}

	if err := cfg.Server.validate(); err != nil {
		return err
	}
	if err := cfg.Logging.validate(); err != nil {
		return err
	}
	cfg.Debug.applyDefaults()
	if err := cfg.Debug.validate(); err != nil {
		return err
	}

	return nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("No nil buffer as config file")
	}

	cfg := new(Config)
	err := toml.Unmarshal(b, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
