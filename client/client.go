// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package client provides the clipwire clipboard replication client.
package client

import (
	"errors"
	"path/filepath"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"github.com/clipwire/clipwire/client/config"
	"github.com/clipwire/clipwire/clipboard"
	"github.com/clipwire/clipwire/core/log"
)

// Options holds the runtime hooks a caller may attach to a Client.
type Options struct {
	// Clipboard overrides the configured clipboard backend.
	Clipboard clipboard.Clipboard

	// OnConnFn is the callback function that will be called when the
	// connection status changes.  The error parameter will be nil on
	// successful connection establishment, otherwise it will be set
	// with the reason why a connection has been torn down (or a connect
	// attempt has failed).
	OnConnFn func(error)
}

// Client is a clipwire client instance.
type Client struct {
	cfg  *config.Config
	opts *Options

	logBackend *log.Backend
	log        *logging.Logger

	watcher *Watcher
	conn    *connection

	haltedCh chan interface{}
	haltOnce sync.Once
}

// GetLogger returns a new logger with the given name.
func (c *Client) GetLogger(name string) *logging.Logger {
	return c.logBackend.GetLogger(name)
}

// RotateLog rotates the log file
// if logging to a file is enabled.
func (c *Client) RotateLog() error {
	return c.logBackend.Rotate()
}

// IsConnected returns true if the client has an established session with the
// server.
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

// Shutdown cleanly shuts down a given Client instance.
func (c *Client) Shutdown() {
	c.haltOnce.Do(func() { c.halt() })
}

// Wait waits till the Client is terminated for any reason.
func (c *Client) Wait() {
	<-c.haltedCh
}

func (c *Client) halt() {
	c.log.Notice("Starting graceful shutdown.")

	// The connection is intentionally left assigned so that accessors
	// like IsConnected remain callable after shutdown.
	c.conn.Halt()

	c.log.Notice("Shutdown complete.")
	close(c.haltedCh)
}

func (c *Client) initLogging() error {
	p := c.cfg.Logging.File
	if !c.cfg.Logging.Disable && c.cfg.Logging.File != "" && !filepath.IsAbs(p) {
		return errors.New("client: Logging.File must be an absolute path")
	}

	var err error
	c.logBackend, err = log.New(p, c.cfg.Logging.Level, c.cfg.Logging.Disable)
	if err == nil {
		c.log = c.logBackend.GetLogger("client")
	}
	return err
}

func (c *Client) initClipboard() error {
	if c.opts != nil && c.opts.Clipboard != nil {
		c.watcher = NewWatcher(c.opts.Clipboard)
		return nil
	}

	switch c.cfg.Clipboard.Backend {
	case config.BackendMemory:
		c.watcher = NewWatcher(clipboard.NewMemory())
	case config.BackendAuto:
		clip, err := clipboard.NewExec()
		if err != nil {
			return err
		}
		c.watcher = NewWatcher(clip)
	default:
		return errors.New("client: unknown clipboard backend")
	}
	return nil
}

// New creates a new Client with the provided configuration and options.
func New(cfg *config.Config, opts *Options) (*Client, error) {
	c := new(Client)
	c.cfg = cfg
	c.opts = opts
	c.haltedCh = make(chan interface{})

	if err := c.initLogging(); err != nil {
		return nil, err
	}
	if err := c.initClipboard(); err != nil {
		return nil, err
	}

	c.log.Noticef("Replicating clipboard via %v.", cfg.Server.Address)

	c.conn = newConnection(c)
	c.conn.start()

	return c, nil
}
