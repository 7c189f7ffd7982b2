// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package commands implements the plaintext wire protocol commands that are
// exchanged inside the encrypted session.
package commands

import (
	"errors"

	"github.com/fxamacker/cbor/v2"
)

const cmdOverhead = 1

type commandID byte

const (
	noOp            commandID = 0x00
	disconnect      commandID = 0x01
	clipboardUpdate commandID = 0x02
)

// Item kinds carried by a ClipboardUpdate.
const (
	// ItemText is a plain clipboard text/bytes payload.
	ItemText uint8 = 0

	// ItemFile is a file payload; Name carries the base file name and the
	// receiver writes the payload to its download directory instead of the
	// clipboard.
	ItemFile uint8 = 1
)

var (
	// ErrInvalidCommand is the error returned when a plaintext fails to
	// parse as a known wire protocol command.
	ErrInvalidCommand = errors.New("commands: invalid wire protocol command")
)

// Command is the common interface exposed by all message command structures.
type Command interface {
	// ToBytes serializes the command and returns the resulting slice.
	ToBytes() []byte
}

// NoOp is a de-serialized noop command, used for handshake finalization and
// keepalives.
type NoOp struct{}

// ToBytes serializes the NoOp and returns the resulting slice.
func (c *NoOp) ToBytes() []byte {
	return []byte{byte(noOp)}
}

// Disconnect is a de-serialized disconnect command, announcing a clean
// shutdown of the session.
type Disconnect struct{}

// ToBytes serializes the Disconnect and returns the resulting slice.
func (c *Disconnect) ToBytes() []byte {
	return []byte{byte(disconnect)}
}

// ClipboardUpdate is a de-serialized clipboard update command.
type ClipboardUpdate struct {
	// Origin is the SessionID of the client that produced the update.  It
	// is assigned by the server on relay; clients send it as zero.
	Origin uint64 `cbor:"1,keyasint"`

	// Sequence increases monotonically per originating client and is used
	// by receivers to discard stale or duplicate deliveries.
	Sequence uint64 `cbor:"2,keyasint"`

	// Kind is one of the Item constants.
	Kind uint8 `cbor:"3,keyasint"`

	// Name is the base file name for ItemFile payloads, empty otherwise.
	Name string `cbor:"4,keyasint,omitempty"`

	// Payload is the raw clipboard or file content.
	Payload []byte `cbor:"5,keyasint"`
}

// ToBytes serializes the ClipboardUpdate and returns the resulting slice.
func (c *ClipboardUpdate) ToBytes() []byte {
	body, err := cbor.Marshal(c)
	if err != nil {
		// Marshaling a plain struct only fails on a programming error.
		panic("commands: failed to marshal ClipboardUpdate: " + err.Error())
	}
	out := make([]byte, 0, cmdOverhead+len(body))
	out = append(out, byte(clipboardUpdate))
	return append(out, body...)
}

func clipboardUpdateFromBytes(b []byte) (Command, error) {
	c := new(ClipboardUpdate)
	if err := cbor.Unmarshal(b, c); err != nil {
		return nil, ErrInvalidCommand
	}
	return c, nil
}

// FromBytes de-serializes the byte buffer b into a Command.  The leading
// byte doubles as the command identifier and format version; an unknown
// value is an unsupported-version protocol violation.
func FromBytes(b []byte) (Command, error) {
	if len(b) < cmdOverhead {
		return nil, ErrInvalidCommand
	}
	id := commandID(b[0])
	b = b[cmdOverhead:]

	switch id {
	case noOp:
		if len(b) != 0 {
			return nil, ErrInvalidCommand
		}
		return &NoOp{}, nil
	case disconnect:
		if len(b) != 0 {
			return nil, ErrInvalidCommand
		}
		return &Disconnect{}, nil
	case clipboardUpdate:
		return clipboardUpdateFromBytes(b)
	default:
		return nil, ErrInvalidCommand
	}
}
