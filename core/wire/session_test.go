// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"crypto/rand"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/clipwire/clipwire/core/wire/commands"
)

func newSessionPair(t *testing.T, maxFrameSize uint32) (*Session, *Session, net.Conn, net.Conn) {
	require := require.New(t)

	cfg := &SessionConfig{
		MaxFrameSize: maxFrameSize,
		RandomReader: rand.Reader,
	}
	sAlice, err := NewSession(cfg, true)
	require.NoError(err, "Alice NewSession()")
	sBob, err := NewSession(cfg, false)
	require.NoError(err, "Bob NewSession()")

	connAlice, connBob := net.Pipe()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		require.NoError(sAlice.Initialize(connAlice), "Alice Initialize()")
	}()
	go func() {
		defer wg.Done()
		require.NoError(sBob.Initialize(connBob), "Bob Initialize()")
	}()
	wg.Wait()

	return sAlice, sBob, connAlice, connBob
}

func TestSessionHandshakeAndRoundTrip(t *testing.T) {
	require := require.New(t)

	sAlice, sBob, _, _ := newSessionPair(t, 0)
	defer sAlice.Close()
	defer sBob.Close()

	requireUpdateEq := func(cmd commands.Command, expected *commands.ClipboardUpdate) {
		require.IsType(&commands.ClipboardUpdate{}, cmd)
		upd := cmd.(*commands.ClipboardUpdate)
		require.Equal(expected.Sequence, upd.Sequence)
		require.Equal(expected.Kind, upd.Kind)
		require.Equal(expected.Payload, upd.Payload)
	}

	upd1 := &commands.ClipboardUpdate{
		Sequence: 1,
		Kind:     commands.ItemText,
		Payload:  []byte("the quick brown fox"),
	}
	upd2 := &commands.ClipboardUpdate{
		Sequence: 2,
		Kind:     commands.ItemText,
		Payload:  []byte("jumps over the lazy dog"),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(sAlice.SendCommand(upd1), "Alice SendCommand() 1")
		require.NoError(sAlice.SendCommand(upd2), "Alice SendCommand() 2")
		require.NoError(sAlice.SendCommand(&commands.NoOp{}), "Alice SendCommand() NoOp")
	}()

	cmd, err := sBob.RecvCommand()
	require.NoError(err, "Bob RecvCommand() 1")
	requireUpdateEq(cmd, upd1)

	cmd, err = sBob.RecvCommand()
	require.NoError(err, "Bob RecvCommand() 2")
	requireUpdateEq(cmd, upd2)

	cmd, err = sBob.RecvCommand()
	require.NoError(err, "Bob RecvCommand() 3")
	require.IsType(&commands.NoOp{}, cmd)

	wg.Wait()
}

func TestSessionBothDirections(t *testing.T) {
	require := require.New(t)

	sAlice, sBob, _, _ := newSessionPair(t, 0)
	defer sAlice.Close()
	defer sBob.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(sBob.SendCommand(&commands.ClipboardUpdate{
			Origin:   7,
			Sequence: 42,
			Kind:     commands.ItemText,
			Payload:  []byte("server to client"),
		}))
	}()

	cmd, err := sAlice.RecvCommand()
	require.NoError(err)
	upd := cmd.(*commands.ClipboardUpdate)
	require.Equal(uint64(7), upd.Origin)
	require.Equal([]byte("server to client"), upd.Payload)

	wg.Wait()
}

func TestSessionTamperedFrame(t *testing.T) {
	require := require.New(t)

	sAlice, sBob, connAlice, _ := newSessionPair(t, 0)
	defer sAlice.Close()
	defer sBob.Close()

	// A frame that was never sealed by Alice's tx key must fail AEAD
	// verification and kill the session.
	junk := make([]byte, 64)
	_, err := rand.Read(junk)
	require.NoError(err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(writeFrame(connAlice, junk))
	}()

	_, err = sBob.RecvCommand()
	require.Equal(ErrAuthenticationFailed, err)
	wg.Wait()

	// The session is now invalid.
	_, err = sBob.RecvCommand()
	require.Equal(ErrInvalidState, err)
}

func TestSessionBitFlippedFrame(t *testing.T) {
	require := require.New(t)

	sAlice, sBob, connAlice, _ := newSessionPair(t, 0)
	defer sAlice.Close()
	defer sBob.Close()

	// Seal a genuine command under Alice's tx key, then corrupt a single
	// bit before it hits the wire.
	ct, err := sAlice.tx.seal((&commands.NoOp{}).ToBytes())
	require.NoError(err)
	ct[0] ^= 0x01

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(writeFrame(connAlice, ct))
	}()

	_, err = sBob.RecvCommand()
	require.Equal(ErrAuthenticationFailed, err)
	wg.Wait()
}

func TestCipherStateNonceUniqueness(t *testing.T) {
	require := require.New(t)

	key := make([]byte, chacha20poly1305.KeySize)
	_, err := rand.Read(key)
	require.NoError(err)
	cs, err := newCipherState(key)
	require.NoError(err)

	pt := []byte("identical plaintext")
	seenNonces := make(map[[chacha20poly1305.NonceSize]byte]bool)
	seenCts := make(map[string]bool)
	for i := 0; i < 256; i++ {
		n := cs.nonce()
		require.False(seenNonces[n], "nonce reused at step %d", i)
		seenNonces[n] = true

		ct, err := cs.seal(pt)
		require.NoError(err)
		require.False(seenCts[string(ct)], "ciphertext repeated at step %d", i)
		seenCts[string(ct)] = true
	}
	require.Equal(uint64(256), cs.counter)
}

func TestSessionOversizedSend(t *testing.T) {
	require := require.New(t)

	sAlice, sBob, _, _ := newSessionPair(t, 4096)
	defer sAlice.Close()
	defer sBob.Close()

	cmd := &commands.ClipboardUpdate{
		Sequence: 1,
		Kind:     commands.ItemText,
		Payload:  make([]byte, 8192),
	}
	require.Equal(ErrMsgSize, sAlice.SendCommand(cmd))
}

func TestSessionOversizedFrameRecv(t *testing.T) {
	require := require.New(t)

	sAlice, sBob, connAlice, _ := newSessionPair(t, 4096)
	defer sAlice.Close()
	defer sBob.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Declare a frame far in excess of Bob's maximum.  Only the header
		// needs to arrive for the rejection to fire.
		hdr := []byte{0x00, 0x10, 0x00, 0x00} // 1 MiB
		_, err := connAlice.Write(hdr)
		require.NoError(err)
	}()

	_, err := sBob.RecvCommand()
	require.Equal(ErrFrameTooLarge, err)
	wg.Wait()
}

func TestSessionInvalidState(t *testing.T) {
	require := require.New(t)

	cfg := &SessionConfig{RandomReader: rand.Reader}
	s, err := NewSession(cfg, true)
	require.NoError(err)

	require.Equal(ErrInvalidState, s.SendCommand(&commands.NoOp{}))
	_, err = s.RecvCommand()
	require.Equal(ErrInvalidState, err)
}

func TestNewSessionRequiresEntropy(t *testing.T) {
	_, err := NewSession(&SessionConfig{}, true)
	require.Error(t, err)
}
