// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	require := require.New(t)

	const basicConfig = `# A basic configuration example.
[Server]
Addresses = [ "tcp://127.0.0.1:3459" ]
`
	cfg, err := Load([]byte(basicConfig))
	require.NoError(err)

	require.Equal([]string{"tcp://127.0.0.1:3459"}, cfg.Server.Addresses)
	require.Equal("NOTICE", cfg.Logging.Level)
	require.Equal(defaultHandshakeTimeout, cfg.Debug.HandshakeTimeout)
	require.Equal(defaultIdleTimeout, cfg.Debug.IdleTimeout)
	require.Equal(defaultSendQueueSize, cfg.Debug.SendQueueSize)
	require.Equal(defaultMaxFrameSize, cfg.Debug.MaxFrameSize)
}

func TestLoadRejectsBadAddresses(t *testing.T) {
	require := require.New(t)

	_, err := Load([]byte(`
[Server]
Addresses = [ "udp://127.0.0.1:3459" ]
`))
	require.Error(err, "unsupported scheme")

	_, err = Load([]byte(`
[Server]
Addresses = [ "tcp://127.0.0.1" ]
`))
	require.Error(err, "missing port")
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	_, err := Load([]byte(`
[Server]
Addresses = [ "tcp://127.0.0.1:3459" ]
[Logging]
Level = "TRACE"
`))
	require.Error(t, err)
}

func TestLoadDefaultsOmittedLogLevel(t *testing.T) {
	require := require.New(t)

	// A Logging block that omits Level gets the default, not an empty
	// string that the log backend would reject.
	cfg, err := Load([]byte(`
[Server]
Addresses = [ "tcp://127.0.0.1:3459" ]
[Logging]
Disable = true
`))
	require.NoError(err)
	require.Equal(defaultLogLevel, cfg.Logging.Level)

	cfg = &Config{
		Server:  &Server{},
		Logging: &Logging{Disable: true},
	}
	require.NoError(cfg.FixupAndValidate())
	require.Equal(defaultLogLevel, cfg.Logging.Level)
}

func TestLoadRejectsOversizedMaxFrameSize(t *testing.T) {
	_, err := Load([]byte(`
[Server]
Addresses = [ "tcp://127.0.0.1:3459" ]
[Debug]
MaxFrameSize = 4294967296
`))
	require.Error(t, err)
}

func TestLoadRequiresServerBlock(t *testing.T) {
	_, err := Load([]byte(`[Logging]`))
	require.Error(t, err)
}

func TestLoadNilBuffer(t *testing.T) {
	_, err := Load(nil)
	require.Error(t, err)
}

func TestQuicAddressAccepted(t *testing.T) {
	cfg, err := Load([]byte(`
[Server]
Addresses = [ "quic://127.0.0.1:3460" ]
`))
	require.NoError(t, err)
	require.Equal(t, []string{"quic://127.0.0.1:3460"}, cfg.Server.Addresses)
}
