// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"encoding/binary"
	"io"
)

const (
	// frameHeaderSize is the size of the big-endian length prefix.
	frameHeaderSize = 4

	// DefaultMaxFrameSize is the default bound on the ciphertext length a
	// peer may declare, to bound memory consumption.
	DefaultMaxFrameSize = 16 * 1024 * 1024
)

// writeFrame writes p to w as a length-prefixed frame.  The prefix is a
// fixed-width u32 big-endian byte count, followed by exactly that many bytes.
func writeFrame(w io.Writer, p []byte) error {
	var hdr [frameHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(p)))
	if _, err := w.Write(hdr[:]); err != nil {
		return mapEOF(err)
	}
	if _, err := w.Write(p); err != nil {
		return mapEOF(err)
	}
	return nil
}

// readFrame reads one length-prefixed frame from r.  A declared length in
// excess of max fails with ErrFrameTooLarge before any allocation is made.
// The framing layer is purely mechanical and never inspects the payload.
func readFrame(r io.Reader, max uint32) ([]byte, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, mapEOF(err)
	}
	frameLen := binary.BigEndian.Uint32(hdr[:])
	if frameLen > max {
		return nil, ErrFrameTooLarge
	}

	p := make([]byte, frameLen)
	if _, err := io.ReadFull(r, p); err != nil {
		return nil, mapEOF(err)
	}
	return p, nil
}

func mapEOF(err error) error {
	if err == io.ErrUnexpectedEOF {
		return ErrUnexpectedEOF
	}
	return err
}
