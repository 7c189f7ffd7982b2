// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package registry tracks the handshake-completed client sessions and fans
// clipboard updates out to them.
package registry

import (
	"sync"

	"gopkg.in/op/go-logging.v1"

	"github.com/clipwire/clipwire/core/wire/commands"
	"github.com/clipwire/clipwire/server/internal/instrument"
)

// Registry is the set of currently connected, handshake-completed sessions.
// It is the only data shared across connection handlers; every insertion,
// removal and broadcast iteration is one critical section under the mutex,
// so a handler can never broadcast into an entry that is concurrently being
// removed.
type Registry struct {
	sync.Mutex

	log *logging.Logger

	sessions      map[uint64]chan commands.Command
	sendQueueSize int
}

// Register adds a session and returns the channel its connection handler
// must drain to deliver outbound updates.
func (r *Registry) Register(id uint64) <-chan commands.Command {
	r.Lock()
	defer r.Unlock()

	ch := make(chan commands.Command, r.sendQueueSize)
	r.sessions[id] = ch
	instrument.SetConnectedSessions(len(r.sessions))
	r.log.Debugf("session %d registered (%d connected)", id, len(r.sessions))
	return ch
}

// Deregister removes a session.  The handler calls this before tearing down
// its connection so that no later broadcast enqueues into a dead session.
func (r *Registry) Deregister(id uint64) {
	r.Lock()
	defer r.Unlock()

	if ch, ok := r.sessions[id]; ok {
		delete(r.sessions, id)
		close(ch)
	}
	instrument.SetConnectedSessions(len(r.sessions))
	r.log.Debugf("session %d deregistered (%d connected)", id, len(r.sessions))
}

// Broadcast relays the update to every registered session except its origin.
// Delivery into each session's queue is non-blocking; a slow consumer whose
// queue is full misses the update rather than stalling the whole fan-out.
func (r *Registry) Broadcast(cmd *commands.ClipboardUpdate) {
	r.Lock()
	defer r.Unlock()

	for id, ch := range r.sessions {
		if id == cmd.Origin {
			continue
		}
		select {
		case ch <- cmd:
			instrument.UpdateRelayed()
		default:
			instrument.BroadcastDropped()
			r.log.Warningf("session %d send queue full, dropping update from %d", id, cmd.Origin)
		}
	}
}

// NumSessions returns the number of registered sessions.
func (r *Registry) NumSessions() int {
	r.Lock()
	defer r.Unlock()
	return len(r.sessions)
}

// New creates an empty Registry.
func New(log *logging.Logger, sendQueueSize int) *Registry {
	return &Registry{
		log:           log,
		sessions:      make(map[uint64]chan commands.Command),
		sendQueueSize: sendQueueSize,
	}
}
