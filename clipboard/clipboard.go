// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package clipboard abstracts the platform local clipboard as a capability
// with byte-oriented read and write operations.  Errors from the capability
// are treated as transient by callers: the clipboard is best effort.
package clipboard

import "errors"

// ErrUnavailable is the error returned when no clipboard tooling could be
// found for the current platform.
var ErrUnavailable = errors.New("clipboard: no usable clipboard backend")

// Clipboard is the local clipboard capability.
type Clipboard interface {
	// Read returns the current clipboard content.
	Read() ([]byte, error)

	// Write replaces the clipboard content.
	Write([]byte) error
}
