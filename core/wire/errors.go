// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package wire

import "errors"

var (
	// ErrInvalidState is the error returned when a Session operation is
	// attempted in a state that does not permit it.
	ErrInvalidState = errors.New("wire/session: invalid state")

	// ErrAuthenticationFailed is the error returned when an inbound frame
	// fails AEAD verification.  Fatal to the session: no plaintext derived
	// from such a frame is ever surfaced.
	ErrAuthenticationFailed = errors.New("wire/session: authentication failed")

	// ErrInvalidPeerKey is the error returned when the peer's handshake
	// public key is a rejected low-order/degenerate point.
	ErrInvalidPeerKey = errors.New("wire/session: invalid peer public key")

	// ErrNonceExhausted is the error returned when the directional nonce
	// counter would overflow.  The session must be closed and renegotiated.
	ErrNonceExhausted = errors.New("wire/session: nonce counter exhausted")

	// ErrUnsupportedVersion is the error returned when the peer speaks an
	// unknown protocol version.
	ErrUnsupportedVersion = errors.New("wire/session: unsupported protocol version")

	// ErrFrameTooLarge is the error returned when a frame header declares a
	// length in excess of the configured maximum.  The declared length is
	// never allocated or read.
	ErrFrameTooLarge = errors.New("wire/codec: frame exceeds maximum size")

	// ErrUnexpectedEOF is the error returned when the stream closes in the
	// middle of a frame.
	ErrUnexpectedEOF = errors.New("wire/codec: unexpected end of stream mid-frame")

	// ErrMsgSize is the error returned when attempting to send a message
	// that would exceed the maximum frame size.
	ErrMsgSize = errors.New("wire/session: invalid message size")
)
