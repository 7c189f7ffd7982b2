// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/clipwire/clipwire/core/wire"
	"github.com/clipwire/clipwire/core/wire/commands"
	"github.com/clipwire/clipwire/core/worker"
	"github.com/clipwire/clipwire/quic/common"
)

var (
	// ErrShutdown is the error returned when the connection is closed due to
	// a call to Shutdown().
	ErrShutdown = fmt.Errorf("shutdown requested")

	// ErrNotConnected is the error reported while the client has no
	// established session with the server.
	ErrNotConnected = fmt.Errorf("client/conn: not connected to the server")

	keepAliveInterval = 3 * time.Minute
)

// ConnectError is the error used to indicate that a connect attempt has failed.
type ConnectError struct {
	// Err is the original error that caused the connect attempt to fail.
	Err error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("client/conn: connect error: %v", e.Err)
}

// ProtocolError is the error used to indicate that the connection was closed
// due to wire protocol related reasons.
type ProtocolError struct {
	// Err is the original error that triggered connection termination.
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("client/conn: protocol error: %v", e.Err)
}

func newProtocolError(f string, a ...interface{}) error {
	return &ProtocolError{Err: fmt.Errorf(f, a...)}
}

type connection struct {
	sync.Mutex
	worker.Worker

	c   *Client
	log *logging.Logger

	retryDelay  int64 // used as atomic time.Duration
	isConnected bool

	// sendSeq labels locally originated updates.
	sendSeq uint64

	// lastSeq tracks the newest sequence number seen per origin session,
	// dropping stale redeliveries.
	lastSeq map[uint64]uint64
}

func (c *connection) connectWorker() {
	defer c.log.Debugf("Terminating connect worker.")

	dialCtx, cancelFn := context.WithCancel(context.Background())
	go func() {
		select {
		case <-c.HaltCh():
			cancelFn()
		case <-dialCtx.Done():
		}
	}()

	for {
		select {
		case <-c.HaltCh():
			return
		default:
		}
		c.doConnect(dialCtx)
	}

	// NOTREACHED
}

func (c *connection) doConnect(dialCtx context.Context) {
	retryIncrement := time.Duration(c.c.cfg.Debug.RetryIncrement) * time.Millisecond
	maxRetryDelay := time.Duration(c.c.cfg.Debug.MaxRetryDelay) * time.Millisecond

	var connErr error
	defer func() {
		if connErr == nil {
			panic("BUG: connErr is nil on connection teardown.")
		}
		c.onConnStatusChange(connErr)
	}()

	u, err := url.Parse(c.c.cfg.Server.Address)
	if err != nil {
		connErr = &ConnectError{Err: err}
		return
	}

	dialer := net.Dialer{
		KeepAlive: keepAliveInterval,
		Timeout:   time.Duration(c.c.cfg.Debug.ConnectTimeout) * time.Millisecond,
	}

	for {
		select {
		case <-time.After(time.Duration(atomic.LoadInt64(&c.retryDelay))):
			// Back off the reconnect delay.
			atomic.AddInt64(&c.retryDelay, int64(retryIncrement))
			if atomic.LoadInt64(&c.retryDelay) > int64(maxRetryDelay) {
				atomic.StoreInt64(&c.retryDelay, int64(maxRetryDelay))
			}
		case <-c.HaltCh():
			c.log.Debugf("(Re)connection attempts cancelled.")
			connErr = ErrShutdown
			return
		}

		c.log.Debugf("Dialing: %v", u.Host)
		var conn net.Conn
		switch u.Scheme {
		case "tcp", "tcp4", "tcp6":
			conn, err = dialer.DialContext(dialCtx, u.Scheme, u.Host)
		case "quic":
			conn, err = common.DialQuic(dialCtx, u.Host)
		default:
			connErr = &ConnectError{Err: fmt.Errorf("unsupported scheme '%v'", u.Scheme)}
			return
		}
		select {
		case <-c.HaltCh():
			if conn != nil {
				conn.Close()
			}
			connErr = ErrShutdown
			return
		default:
			if err != nil {
				c.log.Warningf("Failed to connect to %v: %v", u.Host, err)
				c.onConnStatusChange(&ConnectError{Err: err})
				continue
			}
		}
		c.log.Debugf("Transport connection established.")

		c.onNetConn(conn)

		// Loop back around and reconnect on a successful connect that
		// later terminated.
		c.log.Debugf("Connection terminated, will reconnect.")
		c.onConnStatusChange(ErrNotConnected)
	}
}

func (c *connection) onNetConn(conn net.Conn) {
	var err error

	defer func() {
		c.log.Debugf("Transport connection closed.")
		conn.Close()
	}()

	// Allocate the session struct.
	cfg := &wire.SessionConfig{
		MaxFrameSize: uint32(c.c.cfg.Debug.MaxFrameSize),
		RandomReader: rand.Reader,
	}
	w, err := wire.NewSession(cfg, true)
	if err != nil {
		c.log.Errorf("Failed to allocate session: %v", err)
		c.onConnStatusChange(&ConnectError{Err: err})
		return
	}
	defer w.Close()

	// Bind the session to the conn and handshake.
	timeoutMs := time.Duration(c.c.cfg.Debug.HandshakeTimeout) * time.Millisecond
	conn.SetDeadline(time.Now().Add(timeoutMs))
	if err = w.Initialize(conn); err != nil {
		c.log.Errorf("Handshake failed: %v", err)
		c.onConnStatusChange(&ConnectError{Err: err})
		return
	}
	c.log.Debugf("Handshake completed.")
	conn.SetDeadline(time.Time{})

	// A completed handshake resets the reconnect backoff.
	atomic.StoreInt64(&c.retryDelay, 0)

	c.onWireConn(w)
}

func (c *connection) onWireConn(w *wire.Session) {
	c.onConnStatusChange(nil)

	// Session identifiers are scoped to a single server instance, so the
	// dedup watermarks from a previous session are meaningless here.
	c.lastSeq = make(map[uint64]uint64)

	var wireErr error

	cmdCloseCh := make(chan interface{})
	defer func() {
		if wireErr == nil {
			panic("BUG: wireErr is nil on connection teardown.")
		}
		close(cmdCloseCh)
	}()

	// Start the peer reader.
	cmdCh := make(chan interface{})
	go func() {
		defer close(cmdCh)
		for {
			rawCmd, err := w.RecvCommand()
			if err != nil {
				c.log.Debugf("Failed to receive command: %v", err)
				select {
				case cmdCh <- err:
				case <-cmdCloseCh:
				}
				return
			}
			select {
			case cmdCh <- rawCmd:
			case <-cmdCloseCh:
				return
			}
		}
	}()

	pollInterval := time.Duration(c.c.cfg.Clipboard.PollInterval) * time.Millisecond
	pollTimer := time.NewTimer(pollInterval)
	defer pollTimer.Stop()

	// Periodic NoOps keep a quiet session under the server's idle timeout.
	keepAlivePeriod := time.Duration(c.c.cfg.Debug.KeepAlivePeriod) * time.Millisecond
	keepAliveTimer := time.NewTimer(keepAlivePeriod)
	defer keepAliveTimer.Stop()

	for {
		var rawCmd commands.Command

		select {
		case <-c.HaltCh():
			// Best effort clean disconnect.
			if err := w.SendCommand(&commands.Disconnect{}); err != nil {
				c.log.Debugf("Failed to send Disconnect: %v", err)
			}
			wireErr = ErrShutdown
			return
		case <-pollTimer.C:
			if wireErr = c.pollClipboard(w); wireErr != nil {
				return
			}
			pollTimer.Reset(pollInterval)
			continue
		case <-keepAliveTimer.C:
			if wireErr = w.SendCommand(&commands.NoOp{}); wireErr != nil {
				c.log.Debugf("Failed to send keepalive: %v", wireErr)
				return
			}
			keepAliveTimer.Reset(keepAlivePeriod)
			continue
		case tmp, ok := <-cmdCh:
			if !ok {
				wireErr = newProtocolError("command receive worker terminated")
				return
			}
			switch cmdOrErr := tmp.(type) {
			case commands.Command:
				rawCmd = cmdOrErr
			case error:
				wireErr = cmdOrErr
				return
			}
		}

		// Handle the command.
		switch cmd := rawCmd.(type) {
		case *commands.NoOp:
			c.log.Debugf("Received NoOp.")
		case *commands.Disconnect:
			c.log.Debugf("Received Disconnect.")
			wireErr = newProtocolError("server sent Disconnect")
			return
		case *commands.ClipboardUpdate:
			c.onClipboardUpdate(cmd)
		default:
			c.log.Errorf("Received unexpected command: %T", cmd)
			wireErr = newProtocolError("received unknown command: %T", cmd)
			return
		}
	}
}

func (c *connection) pollClipboard(w *wire.Session) error {
	p, changed, err := c.c.watcher.Poll()
	if err != nil {
		c.log.Warningf("Failed to read clipboard: %v", err)
		return nil
	}
	if !changed {
		return nil
	}

	c.sendSeq++
	cmd := &commands.ClipboardUpdate{
		Sequence: c.sendSeq,
		Kind:     commands.ItemText,
		Payload:  p,
	}
	if err := w.SendCommand(cmd); err != nil {
		c.log.Debugf("Failed to send ClipboardUpdate: %v", err)
		return err
	}
	c.log.Debugf("Sent ClipboardUpdate: %d (%d bytes)", cmd.Sequence, len(p))
	return nil
}

func (c *connection) onClipboardUpdate(cmd *commands.ClipboardUpdate) {
	// Drop stale redeliveries.  Sequence numbers are per origin session and
	// strictly increase, so anything at or below the high watermark has
	// already been applied.
	if last, ok := c.lastSeq[cmd.Origin]; ok && cmd.Sequence <= last {
		c.log.Debugf("Dropping stale update %d from session %d.", cmd.Sequence, cmd.Origin)
		return
	}
	c.lastSeq[cmd.Origin] = cmd.Sequence

	switch cmd.Kind {
	case commands.ItemText:
		if err := c.c.watcher.Apply(cmd.Payload); err != nil {
			c.log.Warningf("Failed to apply clipboard update: %v", err)
		}
	case commands.ItemFile:
		if err := c.saveFile(cmd.Name, cmd.Payload); err != nil {
			c.log.Warningf("Failed to save file item: %v", err)
		}
	default:
		c.log.Warningf("Dropping update with unknown item kind: %d", cmd.Kind)
	}
}

func (c *connection) saveFile(name string, payload []byte) error {
	dir := c.c.cfg.Clipboard.DownloadDir
	if dir == "" {
		c.log.Debugf("No DownloadDir configured, discarding file item.")
		return nil
	}

	// Strip any path components the sender may have included.
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid file item name")
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, payload, 0600); err != nil {
		return err
	}
	c.log.Noticef("Saved file item to %v (%d bytes).", p, len(payload))
	return nil
}

func (c *connection) onConnStatusChange(err error) {
	c.Lock()
	c.isConnected = err == nil
	c.Unlock()

	if c.c.opts != nil && c.c.opts.OnConnFn != nil {
		c.c.opts.OnConnFn(err)
	}
}

// IsConnected returns true if the connection has an established session.
func (c *connection) IsConnected() bool {
	c.Lock()
	defer c.Unlock()
	return c.isConnected
}

func (c *connection) start() {
	c.Go(c.connectWorker)
}

func newConnection(c *Client) *connection {
	k := new(connection)
	k.c = c
	k.log = c.logBackend.GetLogger("client/conn")
	k.lastSeq = make(map[uint64]uint64)
	return k
}
