// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package clipboard

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Exec is a Clipboard backed by the platform's clipboard command line tools
// (pbpaste/pbcopy on Darwin, wl-paste/wl-copy on Wayland, xclip on X11).
// The tool pair is selected once at construction and never re-probed.
type Exec struct {
	readArgv  []string
	writeArgv []string
}

// Read returns the current clipboard content.
func (e *Exec) Read() ([]byte, error) {
	cmd := exec.Command(e.readArgv[0], e.readArgv[1:]...)
	out, err := cmd.Output()
	if err != nil {
		// xclip and wl-paste exit non-zero on an empty selection, which is
		// not an error for our purposes.
		if _, ok := err.(*exec.ExitError); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("clipboard: read failed: %v", err)
	}
	return out, nil
}

// Write replaces the clipboard content.
func (e *Exec) Write(p []byte) error {
	cmd := exec.Command(e.writeArgv[0], e.writeArgv[1:]...)
	cmd.Stdin = bytes.NewReader(p)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard: write failed: %v", err)
	}
	return nil
}

// NewExec probes for a usable clipboard tool pair and returns an Exec
// Clipboard, or ErrUnavailable if none is found.
func NewExec() (*Exec, error) {
	type candidate struct {
		readArgv  []string
		writeArgv []string
	}

	var candidates []candidate
	switch runtime.GOOS {
	case "darwin":
		candidates = []candidate{
			{[]string{"pbpaste"}, []string{"pbcopy"}},
		}
	default:
		if os.Getenv("WAYLAND_DISPLAY") != "" {
			candidates = append(candidates, candidate{
				[]string{"wl-paste", "--no-newline"},
				[]string{"wl-copy"},
			})
		}
		if os.Getenv("DISPLAY") != "" {
			candidates = append(candidates, candidate{
				[]string{"xclip", "-selection", "clipboard", "-o"},
				[]string{"xclip", "-selection", "clipboard", "-i"},
			})
		}
	}

	for _, c := range candidates {
		if _, err := exec.LookPath(c.readArgv[0]); err != nil {
			continue
		}
		if _, err := exec.LookPath(c.writeArgv[0]); err != nil {
			continue
		}
		return &Exec{readArgv: c.readArgv, writeArgv: c.writeArgv}, nil
	}
	return nil, ErrUnavailable
}
