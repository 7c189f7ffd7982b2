// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package ecdh provides X25519 key pairs for the wire protocol key exchange.
package ecdh

import (
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
)

const (
	// PublicKeySize is the size of a serialized PublicKey in bytes.
	PublicKeySize = 32

	// PrivateKeySize is the size of a serialized PrivateKey in bytes.
	PrivateKeySize = 32

	// SharedSecretSize is the size of a derived shared secret in bytes.
	SharedSecretSize = 32
)

var (
	// ErrInvalidKeySize is the error returned when deserializing a key of
	// the wrong length.
	ErrInvalidKeySize = errors.New("ecdh: invalid key size")

	// ErrInvalidPeerKey is the error returned when a peer supplies a
	// low-order or otherwise degenerate public key.  Such keys force the
	// shared secret to a known value and MUST be rejected.
	ErrInvalidPeerKey = errors.New("ecdh: invalid peer public key")

	// ErrEntropyFailure is the error returned when the entropy source fails
	// during key generation.  This is fatal and unrecoverable.
	ErrEntropyFailure = errors.New("ecdh: entropy source failure")
)

// PublicKey is an X25519 public key.
type PublicKey struct {
	pubBytes [PublicKeySize]byte
}

// Bytes returns the raw public key.
func (k *PublicKey) Bytes() []byte {
	return k.pubBytes[:]
}

// FromBytes deserializes the byte slice b into the PublicKey.
func (k *PublicKey) FromBytes(b []byte) error {
	if len(b) != PublicKeySize {
		return ErrInvalidKeySize
	}
	copy(k.pubBytes[:], b)
	return nil
}

// Equal returns true iff the two public keys are identical.
func (k *PublicKey) Equal(other *PublicKey) bool {
	return k.pubBytes == other.pubBytes
}

// Reset clears the PublicKey structure.
func (k *PublicKey) Reset() {
	for i := range k.pubBytes {
		k.pubBytes[i] = 0
	}
}

// String returns the base64 representation of the PublicKey.
func (k *PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k.pubBytes[:])
}

// PrivateKey is an X25519 private key.
type PrivateKey struct {
	pubKey    PublicKey
	privBytes [PrivateKeySize]byte
}

// PublicKey returns the PublicKey corresponding to the PrivateKey.
func (k *PrivateKey) PublicKey() *PublicKey {
	return &k.pubKey
}

// SharedSecret derives the X25519 shared secret between the PrivateKey and
// the peer's PublicKey.  Peer keys that produce an all-zero output (the
// low-order points) are rejected with ErrInvalidPeerKey rather than being
// silently accepted.
func (k *PrivateKey) SharedSecret(peer *PublicKey) ([]byte, error) {
	secret, err := curve25519.X25519(k.privBytes[:], peer.pubBytes[:])
	if err != nil {
		return nil, ErrInvalidPeerKey
	}
	return secret, nil
}

// Reset clears the PrivateKey structure such that no sensitive material is
// left in memory.
func (k *PrivateKey) Reset() {
	for i := range k.privBytes {
		k.privBytes[i] = 0
	}
	k.pubKey.Reset()
}

// NewKeypair generates a new PrivateKey, using r as the entropy source.
func NewKeypair(r io.Reader) (*PrivateKey, error) {
	k := new(PrivateKey)
	if _, err := io.ReadFull(r, k.privBytes[:]); err != nil {
		return nil, ErrEntropyFailure
	}

	pub, err := curve25519.X25519(k.privBytes[:], curve25519.Basepoint)
	if err != nil {
		return nil, ErrEntropyFailure
	}
	copy(k.pubKey.pubBytes[:], pub)
	return k, nil
}
