// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package wire implements the clipwire wire protocol: an anonymous X25519
// key exchange followed by length-prefixed AEAD frames.
//
// The handshake exchanges ephemeral public keys only.  No long-term identity
// keys are involved, so an active attacker able to substitute the first
// message can man-in-the-middle the session; trust is placed in the network
// path (a private LAN or VPN).  This is a deliberate design decision, not an
// oversight.
package wire

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/clipwire/clipwire/core/crypto/ecdh"
	"github.com/clipwire/clipwire/core/wire/commands"
)

const (
	macLen = chacha20poly1305.Overhead

	// prologue indicates protocol version 1 and prefixes each handshake
	// frame's public key bytes.
	prologue = 0x01

	handshakeFrameLen = 1 + ecdh.PublicKeySize

	// Domain-separation labels for the two directional keys.  Deriving
	// independent keys per direction means a reflected frame can never
	// decrypt successfully under the receiver's inbound key.
	labelClientToServer = "clipwire-c2s"
	labelServerToClient = "clipwire-s2c"
)

const (
	stateInit        uint32 = 0
	stateEstablished uint32 = 1
	stateInvalid     uint32 = 2
)

// cipherState is one direction's AEAD key and nonce counter.  The nonce is
// derived from a strictly incrementing counter, never randomly, so uniqueness
// holds for the life of the key without a collision check.
type cipherState struct {
	sync.Mutex

	aead    cipher.AEAD
	key     []byte
	counter uint64
}

func newCipherState(key []byte) (*cipherState, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &cipherState{aead: aead, key: key}, nil
}

func (cs *cipherState) nonce() [chacha20poly1305.NonceSize]byte {
	var n [chacha20poly1305.NonceSize]byte
	binary.BigEndian.PutUint64(n[4:], cs.counter)
	return n
}

func (cs *cipherState) seal(plaintext []byte) ([]byte, error) {
	cs.Lock()
	defer cs.Unlock()

	if cs.counter == math.MaxUint64 {
		return nil, ErrNonceExhausted
	}
	n := cs.nonce()
	cs.counter++
	return cs.aead.Seal(nil, n[:], plaintext, nil), nil
}

func (cs *cipherState) open(ciphertext []byte) ([]byte, error) {
	cs.Lock()
	defer cs.Unlock()

	if cs.counter == math.MaxUint64 {
		return nil, ErrNonceExhausted
	}
	n := cs.nonce()
	plaintext, err := cs.aead.Open(nil, n[:], ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	cs.counter++
	return plaintext, nil
}

func (cs *cipherState) reset() {
	cs.Lock()
	defer cs.Unlock()

	for i := range cs.key {
		cs.key[i] = 0
	}
	cs.aead = nil
}

// SessionConfig is the configuration used to create new Sessions.
type SessionConfig struct {
	// MaxFrameSize bounds the ciphertext length a peer may declare.  A
	// value of 0 selects DefaultMaxFrameSize.
	MaxFrameSize uint32

	// RandomReader is a cryptographic entropy source.
	RandomReader io.Reader
}

// Session is a wire protocol session.
type Session struct {
	conn net.Conn

	keypair    *ecdh.PrivateKey
	randReader io.Reader

	tx *cipherState
	rx *cipherState

	maxFrameSize uint32
	state        uint32
	isInitiator  bool
}

// NewSession creates a new Session.
func NewSession(cfg *SessionConfig, isInitiator bool) (*Session, error) {
	if cfg.RandomReader == nil {
		return nil, errors.New("wire/session: missing RandomReader")
	}
	maxFrameSize := cfg.MaxFrameSize
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Session{
		randReader:   cfg.RandomReader,
		maxFrameSize: maxFrameSize,
		state:        stateInit,
		isInitiator:  isInitiator,
	}, nil
}

func (s *Session) handshake() error {
	defer func() {
		// The ephemeral key pair is single use; the directional keys are
		// all that survives the handshake.
		if s.keypair != nil {
			s.keypair.Reset()
			s.keypair = nil
		}
		atomic.CompareAndSwapUint32(&s.state, stateInit, stateInvalid)
	}()

	var err error
	if s.keypair, err = ecdh.NewKeypair(s.randReader); err != nil {
		return err
	}

	ourMsg := make([]byte, 0, handshakeFrameLen)
	ourMsg = append(ourMsg, prologue)
	ourMsg = append(ourMsg, s.keypair.PublicKey().Bytes()...)

	var peerMsg []byte
	if s.isInitiator {
		if err = writeFrame(s.conn, ourMsg); err != nil {
			return err
		}
		if peerMsg, err = readFrame(s.conn, handshakeFrameLen); err != nil {
			return err
		}
	} else {
		if peerMsg, err = readFrame(s.conn, handshakeFrameLen); err != nil {
			return err
		}
		if err = writeFrame(s.conn, ourMsg); err != nil {
			return err
		}
	}

	if len(peerMsg) != handshakeFrameLen {
		return ErrUnsupportedVersion
	}
	if peerMsg[0] != prologue {
		return ErrUnsupportedVersion
	}

	peerKey := new(ecdh.PublicKey)
	if err = peerKey.FromBytes(peerMsg[1:]); err != nil {
		return err
	}

	secret, err := s.keypair.SharedSecret(peerKey)
	if err != nil {
		return ErrInvalidPeerKey
	}
	defer func() {
		for i := range secret {
			secret[i] = 0
		}
	}()

	c2s, err := deriveKey(secret, labelClientToServer)
	if err != nil {
		return err
	}
	s2c, err := deriveKey(secret, labelServerToClient)
	if err != nil {
		return err
	}

	if s.isInitiator {
		s.tx, err = newCipherState(c2s)
		if err != nil {
			return err
		}
		s.rx, err = newCipherState(s2c)
	} else {
		s.tx, err = newCipherState(s2c)
		if err != nil {
			return err
		}
		s.rx, err = newCipherState(c2s)
	}
	if err != nil {
		return err
	}

	atomic.StoreUint32(&s.state, stateEstablished)
	return nil
}

// finalizeHandshake confirms key agreement: the responder dispatches a NoOp
// under the new session keys, and the initiator requires it as the first
// inbound command so that a derivation mismatch surfaces immediately instead
// of on the first clipboard update.
func (s *Session) finalizeHandshake() error {
	if s.isInitiator {
		cmd, err := s.RecvCommand()
		if err != nil {
			return err
		}
		if _, ok := cmd.(*commands.NoOp); !ok {
			return ErrInvalidState
		}
		return nil
	}
	return s.SendCommand(&commands.NoOp{})
}

// Initialize takes an established net.Conn, binds it to the Session, and
// conducts the wire protocol handshake.
func (s *Session) Initialize(conn net.Conn) error {
	if atomic.LoadUint32(&s.state) != stateInit {
		return ErrInvalidState
	}
	s.conn = conn
	if err := s.handshake(); err != nil {
		return err
	}
	if err := s.finalizeHandshake(); err != nil {
		atomic.StoreUint32(&s.state, stateInvalid)
		return err
	}
	return nil
}

// SendCommand encrypts and sends the wire protocol command cmd.
func (s *Session) SendCommand(cmd commands.Command) error {
	if atomic.LoadUint32(&s.state) != stateEstablished {
		return ErrInvalidState
	}

	pt := cmd.ToBytes()
	if uint64(len(pt))+macLen > uint64(s.maxFrameSize) {
		return ErrMsgSize
	}

	ct, err := s.tx.seal(pt)
	if err != nil {
		atomic.StoreUint32(&s.state, stateInvalid)
		return err
	}
	if err = writeFrame(s.conn, ct); err != nil {
		// All write errors are fatal.
		atomic.StoreUint32(&s.state, stateInvalid)
		return err
	}
	return nil
}

// RecvCommand receives and decrypts a wire protocol command off the network.
func (s *Session) RecvCommand() (commands.Command, error) {
	cmd, err := s.recvCommandImpl()
	if err != nil {
		// All receive errors are fatal.
		atomic.StoreUint32(&s.state, stateInvalid)
	}
	return cmd, err
}

func (s *Session) recvCommandImpl() (commands.Command, error) {
	if atomic.LoadUint32(&s.state) != stateEstablished {
		return nil, ErrInvalidState
	}

	ct, err := readFrame(s.conn, s.maxFrameSize)
	if err != nil {
		return nil, err
	}
	if len(ct) < macLen {
		return nil, ErrAuthenticationFailed
	}
	pt, err := s.rx.open(ct)
	if err != nil {
		return nil, err
	}
	return commands.FromBytes(pt)
}

// Close terminates a session, zeroing the directional keys.
func (s *Session) Close() {
	if s.tx != nil {
		s.tx.reset()
	}
	if s.rx != nil {
		s.rx.reset()
	}
	if s.keypair != nil {
		s.keypair.Reset()
		s.keypair = nil
	}
	if s.conn != nil {
		s.conn.Close()
	}
	atomic.StoreUint32(&s.state, stateInvalid)
}

func deriveKey(secret []byte, label string) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(label))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
