// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package ecdh

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeypairSharedSecret(t *testing.T) {
	require := require.New(t)

	alice, err := NewKeypair(rand.Reader)
	require.NoError(err, "Alice NewKeypair()")
	bob, err := NewKeypair(rand.Reader)
	require.NoError(err, "Bob NewKeypair()")

	aliceSecret, err := alice.SharedSecret(bob.PublicKey())
	require.NoError(err, "Alice SharedSecret()")
	bobSecret, err := bob.SharedSecret(alice.PublicKey())
	require.NoError(err, "Bob SharedSecret()")

	require.Equal(aliceSecret, bobSecret, "shared secrets mismatch")
	require.Len(aliceSecret, SharedSecretSize)
}

func TestSharedSecretRejectsLowOrderPoint(t *testing.T) {
	require := require.New(t)

	alice, err := NewKeypair(rand.Reader)
	require.NoError(err)

	// The identity element yields an all-zero shared secret and must be
	// rejected.
	lowOrder := new(PublicKey)
	err = lowOrder.FromBytes(make([]byte, PublicKeySize))
	require.NoError(err)

	_, err = alice.SharedSecret(lowOrder)
	require.Equal(ErrInvalidPeerKey, err)
}

func TestPublicKeyFromBytes(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	k, err := NewKeypair(rand.Reader)
	require.NoError(err)

	var pub PublicKey
	require.NoError(pub.FromBytes(k.PublicKey().Bytes()))
	assert.True(pub.Equal(k.PublicKey()))

	assert.Equal(ErrInvalidKeySize, pub.FromBytes(make([]byte, PublicKeySize-1)))
}

func TestPrivateKeyReset(t *testing.T) {
	require := require.New(t)

	k, err := NewKeypair(rand.Reader)
	require.NoError(err)

	k.Reset()
	require.Equal(make([]byte, PublicKeySize), k.PublicKey().Bytes(), "public key not zeroized")
}
