// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package incoming

import (
	"container/list"
	"crypto/rand"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/clipwire/clipwire/core/wire"
	"github.com/clipwire/clipwire/core/wire/commands"
	"github.com/clipwire/clipwire/server/internal/instrument"
)

var incomingConnID uint64

type incomingConn struct {
	l   *listener
	log *logging.Logger

	c net.Conn
	e *list.Element
	w *wire.Session

	id uint64
}

func (c *incomingConn) worker() {
	defer func() {
		c.log.Debugf("Closing.")
		c.c.Close()
		c.l.onClosedConn(c) // Remove from the connection list.
	}()

	// Allocate the session struct.
	cfg := &wire.SessionConfig{
		MaxFrameSize: uint32(c.l.glue.Config().Debug.MaxFrameSize),
		RandomReader: rand.Reader,
	}
	var err error
	c.w, err = wire.NewSession(cfg, false)
	if err != nil {
		c.log.Errorf("Failed to allocate session: %v", err)
		return
	}
	defer c.w.Close()

	// Bind the session to the conn and handshake.
	timeoutMs := time.Duration(c.l.glue.Config().Debug.HandshakeTimeout) * time.Millisecond
	c.c.SetDeadline(time.Now().Add(timeoutMs))
	if err = c.w.Initialize(c.c); err != nil {
		c.log.Errorf("Handshake failed: %v", err)
		return
	}
	c.log.Debugf("Handshake completed.")
	c.c.SetDeadline(time.Time{})

	// Join the broadcast registry.  Deregistration must happen before the
	// session is torn down so that no relay attempts race the close.
	reg := c.l.glue.Registry()
	sendCh := reg.Register(c.id)
	defer reg.Deregister(c.id)

	// Start reading from the peer.
	commandCh := make(chan commands.Command)
	commandCloseCh := make(chan interface{})
	defer close(commandCloseCh)
	go func() {
		defer close(commandCh)
		for {
			rawCmd, err := c.w.RecvCommand()
			if err != nil {
				c.log.Debugf("Failed to receive command: %v", err)
				return
			}
			select {
			case commandCh <- rawCmd:
			case <-commandCloseCh:
				// c.worker() is returning for some reason, give up on
				// trying to write the command, and just return.
				return
			}
		}
	}()

	// The idle timer is reset whenever the peer sends traffic.
	var idleCh <-chan time.Time
	var idleTimer *time.Timer
	idleMs := time.Duration(c.l.glue.Config().Debug.IdleTimeout) * time.Millisecond
	if idleMs > 0 {
		idleTimer = time.NewTimer(idleMs)
		defer idleTimer.Stop()
		idleCh = idleTimer.C
	}

	// Process incoming commands and relay queued updates.
	for {
		var rawCmd commands.Command
		var ok bool

		select {
		case <-c.l.closeAllCh:
			// Server is getting shutdown, all connections are being closed.
			return
		case <-idleCh:
			c.log.Debugf("Disconnecting, connection idle for %v.", idleMs)
			return
		case upd, sendOk := <-sendCh:
			if !sendOk {
				return
			}
			if err := c.w.SendCommand(upd); err != nil {
				c.log.Debugf("Failed to relay update: %v", err)
				return
			}
			continue
		case rawCmd, ok = <-commandCh:
			if !ok {
				return
			}
		}

		if idleTimer != nil {
			if !idleTimer.Stop() {
				<-idleTimer.C
			}
			idleTimer.Reset(idleMs)
		}

		switch cmd := rawCmd.(type) {
		case *commands.NoOp:
			c.log.Debugf("Received NoOp from peer.")
		case *commands.Disconnect:
			c.log.Debugf("Received disconnect from peer.")
			return
		case *commands.ClipboardUpdate:
			// The origin is stamped server-side so that a client cannot
			// impersonate another session.
			cmd.Origin = c.id
			instrument.UpdateReceived()
			reg.Broadcast(cmd)
		default:
			c.log.Debugf("Received unexpected command: %T", cmd)
			return
		}
	}

	// NOTREACHED
}

func newIncomingConn(l *listener, conn net.Conn) *incomingConn {
	c := &incomingConn{
		l:  l,
		c:  conn,
		id: atomic.AddUint64(&incomingConnID, 1),
	}
	c.log = l.glue.LogBackend().GetLogger(fmt.Sprintf("incoming:%d", c.id))

	c.log.Debugf("New incoming connection: %v", conn.RemoteAddr())

	// Note: Unlike most other things, this does not spawn the worker here,
	// because the worker needs to be spawned after the struct is added to
	// the connection list.

	return c
}
