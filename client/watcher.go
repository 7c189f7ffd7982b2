// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"bytes"
	"sync"

	"github.com/clipwire/clipwire/clipboard"
)

// Watcher tracks the last observed clipboard value so that polling can
// detect local changes, and so that remotely applied updates are not echoed
// back to the server.
type Watcher struct {
	sync.Mutex

	clip clipboard.Clipboard
	last []byte
}

// Poll reads the clipboard and reports whether its contents differ from the
// last observed value.  A change updates the tracked value, so each local
// edit is reported exactly once.
func (w *Watcher) Poll() ([]byte, bool, error) {
	p, err := w.clip.Read()
	if err != nil {
		return nil, false, err
	}

	w.Lock()
	defer w.Unlock()
	if bytes.Equal(p, w.last) {
		return nil, false, nil
	}
	w.last = p
	return p, true, nil
}

// Apply writes a remotely received value to the clipboard and records it as
// the last observed value, suppressing the echo that the next Poll would
// otherwise report.  If the clipboard write fails the tracked value is
// rolled back so the clipboard and the tracker stay consistent.
func (w *Watcher) Apply(p []byte) error {
	w.Lock()
	defer w.Unlock()

	prev := w.last
	w.last = p
	if err := w.clip.Write(p); err != nil {
		w.last = prev
		return err
	}
	return nil
}

// NewWatcher creates a Watcher over the given clipboard.
func NewWatcher(clip clipboard.Clipboard) *Watcher {
	return &Watcher{clip: clip}
}
