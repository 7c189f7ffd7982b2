// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package config provides the clipwire client configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel         = "NOTICE"
	defaultPollInterval     = 200         // 200 ms.
	defaultConnectTimeout   = 60 * 1000   // 60 sec.
	defaultHandshakeTimeout = 30 * 1000   // 30 sec.
	defaultRetryIncrement   = 5 * 1000    // 5 sec.
	defaultMaxRetryDelay    = 2 * 60 * 1000 // 2 min.
	defaultKeepAlivePeriod  = 60 * 1000  // 60 sec.
	defaultMaxFrameSize     = 16 * 1024 * 1024 // 16 MiB.

	// BackendAuto probes the host for a usable clipboard tool.
	BackendAuto = "auto"

	// BackendMemory is an in-process clipboard, chiefly for testing.
	BackendMemory = "memory"
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// Server describes the relay server to connect to.
type Server struct {
	// Address is the server address as a URL with a tcp:// or quic://
	// scheme.
	Address string
}

func (sCfg *Server) validate() error {
	if sCfg.Address == "" {
		return errors.New("config: Server: Address is not set")
	}
	u, err := url.Parse(sCfg.Address)
	if err != nil {
		return fmt.Errorf("config: Server: Address '%v' is invalid: %v", sCfg.Address, err)
	}
	switch u.Scheme {
	case "tcp", "tcp4", "tcp6", "quic":
	default:
		return fmt.Errorf("config: Server: Address '%v' has unsupported scheme '%v'", sCfg.Address, u.Scheme)
	}
	if u.Port() == "" {
		return fmt.Errorf("config: Server: Address '%v' is invalid: Must contain Port", sCfg.Address)
	}
	return nil
}

// Clipboard is the local clipboard configuration.
type Clipboard struct {
	// Backend selects the clipboard implementation, one of "auto" or
	// "memory".
	Backend string

	// PollInterval is the clipboard poll interval in milliseconds.
	PollInterval int

	// DownloadDir is the directory incoming file items are written to.
	// If omitted the items are discarded.
	DownloadDir string
}

func (cCfg *Clipboard) validate() error {
	switch cCfg.Backend {
	case "":
		cCfg.Backend = BackendAuto
	case BackendAuto, BackendMemory:
	default:
		return fmt.Errorf("config: Clipboard: Backend '%v' is invalid", cCfg.Backend)
	}
	if cCfg.PollInterval <= 0 {
		cCfg.PollInterval = defaultPollInterval
	}
	if cCfg.DownloadDir != "" && !filepath.IsAbs(cCfg.DownloadDir) {
		return fmt.Errorf("config: Clipboard: DownloadDir '%v' is not an absolute path", cCfg.DownloadDir)
	}
	return nil
}

// Debug is the clipwire client debug configuration.
type Debug struct {
	// ConnectTimeout specifies the maximum time a connection can take to
	// establish a transport connection in milliseconds.
	ConnectTimeout int

	// HandshakeTimeout specifies the maximum time a connection can take for
	// the link protocol handshake in milliseconds.
	HandshakeTimeout int

	// RetryIncrement is the amount the reconnect delay grows by after each
	// failed connection attempt, in milliseconds.
	RetryIncrement int

	// MaxRetryDelay caps the reconnect delay, in milliseconds.
	MaxRetryDelay int

	// KeepAlivePeriod is the interval at which a NoOp is sent on an
	// otherwise quiet session, in milliseconds.  It must undercut the
	// server's idle timeout or the session will be torn down between
	// clipboard changes.
	KeepAlivePeriod int

	// MaxFrameSize is the maximum accepted wire frame length in bytes.
	MaxFrameSize int
}

func (dCfg *Debug) applyDefaults() {
	if dCfg.ConnectTimeout <= 0 {
		dCfg.ConnectTimeout = defaultConnectTimeout
	}
	if dCfg.HandshakeTimeout <= 0 {
		dCfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if dCfg.RetryIncrement <= 0 {
		dCfg.RetryIncrement = defaultRetryIncrement
	}
	if dCfg.MaxRetryDelay <= 0 {
		dCfg.MaxRetryDelay = defaultMaxRetryDelay
	}
	if dCfg.KeepAlivePeriod <= 0 {
		dCfg.KeepAlivePeriod = defaultKeepAlivePeriod
	}
	if dCfg.MaxFrameSize <= 0 {
		dCfg.MaxFrameSize = defaultMaxFrameSize
	}
}

func (dCfg *Debug) validate() error {
	// The wire frame length prefix is a u32.
	if int64(dCfg.MaxFrameSize) > math.MaxUint32 {
		return fmt.Errorf("config: Debug: MaxFrameSize '%v' exceeds the wire frame limit", dCfg.MaxFrameSize)
	}
	return nil
}

// Logging is the clipwire client logging configuration.
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

// Config is the top level clipwire client configuration.
type Config struct {
	Server    *Server
	Clipboard *Clipboard
	Logging   *Logging
	Debug     *Debug
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration.  Most people should call one of the Load variants
// instead.
func (cfg *Config) FixupAndValidate() error {
	// The Server section is mandatory, everything else is optional.
	if cfg.Server == nil {
		return errors.New("config: No Server block was present")
	}
	if cfg.Clipboard == nil {
		cfg.Clipboard = &Clipboard{}
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
	if err := cfg.Clipboard.validate(); err != nil {
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
