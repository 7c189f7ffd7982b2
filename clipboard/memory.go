// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package clipboard

import "sync"

// Memory is an in-process Clipboard, used for tests and headless operation.
type Memory struct {
	sync.Mutex

	content []byte
}

// Read returns the current content.
func (m *Memory) Read() ([]byte, error) {
	m.Lock()
	defer m.Unlock()

	out := make([]byte, len(m.content))
	copy(out, m.content)
	return out, nil
}

// Write replaces the current content.
func (m *Memory) Write(p []byte) error {
	m.Lock()
	defer m.Unlock()

	m.content = make([]byte, len(p))
	copy(m.content, p)
	return nil
}

// NewMemory creates an empty in-memory Clipboard.
func NewMemory() *Memory {
	return new(Memory)
}
