// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clipwire/clipwire/clipboard"
)

type failingClipboard struct {
	clipboard.Clipboard

	failWrites bool
}

func (f *failingClipboard) Write(p []byte) error {
	if f.failWrites {
		return errors.New("clipboard tool exploded")
	}
	return f.Clipboard.Write(p)
}

func TestWatcherPollReportsChangeOnce(t *testing.T) {
	require := require.New(t)

	clip := clipboard.NewMemory()
	w := NewWatcher(clip)

	// The initial empty clipboard is not a change.
	_, changed, err := w.Poll()
	require.NoError(err)
	require.False(changed)

	require.NoError(clip.Write([]byte("local edit")))

	p, changed, err := w.Poll()
	require.NoError(err)
	require.True(changed)
	require.Equal([]byte("local edit"), p)

	// The same content again is not a change.
	_, changed, err = w.Poll()
	require.NoError(err)
	require.False(changed)
}

func TestWatcherApplySuppressesEcho(t *testing.T) {
	require := require.New(t)

	clip := clipboard.NewMemory()
	w := NewWatcher(clip)

	require.NoError(w.Apply([]byte("remote update")))

	// The applied value landed on the clipboard.
	got, err := clip.Read()
	require.NoError(err)
	require.Equal([]byte("remote update"), got)

	// But the next poll must not report it as a local change.
	_, changed, err := w.Poll()
	require.NoError(err)
	require.False(changed)

	// A subsequent genuine local edit is still detected.
	require.NoError(clip.Write([]byte("local after remote")))
	p, changed, err := w.Poll()
	require.NoError(err)
	require.True(changed)
	require.Equal([]byte("local after remote"), p)
}

func TestWatcherApplyRollsBackOnWriteFailure(t *testing.T) {
	require := require.New(t)

	clip := &failingClipboard{Clipboard: clipboard.NewMemory()}
	w := NewWatcher(clip)

	require.NoError(clip.Clipboard.Write([]byte("before")))
	_, changed, err := w.Poll()
	require.NoError(err)
	require.True(changed)

	clip.failWrites = true
	require.Error(w.Apply([]byte("remote update")))
	clip.failWrites = false

	// The tracked value was rolled back, so the unchanged clipboard is
	// still not reported as a local change.
	_, changed, err = w.Poll()
	require.NoError(err)
	require.False(changed)
}
