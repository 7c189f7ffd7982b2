// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	payload := []byte("framed payload")
	require.NoError(writeFrame(&buf, payload))

	got, err := readFrame(&buf, DefaultMaxFrameSize)
	require.NoError(err)
	require.Equal(payload, got)
}

func TestFrameEmptyPayload(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	require.NoError(writeFrame(&buf, nil))

	got, err := readFrame(&buf, DefaultMaxFrameSize)
	require.NoError(err)
	require.Len(got, 0)
}

func TestReadFrameRejectsOversized(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	require.NoError(writeFrame(&buf, make([]byte, 128)))

	_, err := readFrame(&buf, 64)
	require.Equal(ErrFrameTooLarge, err)
}

func TestReadFrameTruncated(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	require.NoError(writeFrame(&buf, []byte("full frame")))

	// Drop the tail of the frame.
	b := buf.Bytes()
	trunc := bytes.NewReader(b[:len(b)-3])

	_, err := readFrame(trunc, DefaultMaxFrameSize)
	require.Equal(ErrUnexpectedEOF, err)
}

func TestReadFrameTruncatedHeader(t *testing.T) {
	require := require.New(t)

	trunc := bytes.NewReader([]byte{0x00, 0x01})
	_, err := readFrame(trunc, DefaultMaxFrameSize)
	require.Equal(ErrUnexpectedEOF, err)
}
