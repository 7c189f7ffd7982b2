// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"crypto/rand"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cconfig "github.com/clipwire/clipwire/client/config"
	"github.com/clipwire/clipwire/client"
	"github.com/clipwire/clipwire/clipboard"
	"github.com/clipwire/clipwire/core/wire"
	"github.com/clipwire/clipwire/core/wire/commands"
	"github.com/clipwire/clipwire/server/config"
)

func testServerConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Server: &config.Server{
			Addresses: []string{"tcp://127.0.0.1:0"},
			DataDir:   t.TempDir(),
		},
		Logging: &config.Logging{Disable: true},
	}
	require.NoError(t, cfg.FixupAndValidate())
	return cfg
}

func dialSession(t *testing.T, addr string) (*wire.Session, net.Conn) {
	require := require.New(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(err)

	s, err := wire.NewSession(&wire.SessionConfig{RandomReader: rand.Reader}, true)
	require.NoError(err)
	require.NoError(s.Initialize(conn))
	return s, conn
}

func TestServerStartShutdown(t *testing.T) {
	require := require.New(t)

	svr, err := New(testServerConfig(t))
	require.NoError(err)
	require.Len(svr.ListenerAddrs(), 1)

	svr.Shutdown()
	svr.Wait()

	// Shutdown is idempotent.
	svr.Shutdown()
}

func TestServerRelaysUpdates(t *testing.T) {
	require := require.New(t)

	svr, err := New(testServerConfig(t))
	require.NoError(err)
	defer svr.Shutdown()

	addr := svr.ListenerAddrs()[0].String()

	s1, c1 := dialSession(t, addr)
	defer c1.Close()
	defer s1.Close()
	s2, c2 := dialSession(t, addr)
	defer c2.Close()
	defer s2.Close()

	// An update from the first session reaches the second, stamped with
	// the originating session's server-assigned identifier.
	require.NoError(s1.SendCommand(&commands.ClipboardUpdate{
		Sequence: 1,
		Kind:     commands.ItemText,
		Payload:  []byte("hello from one"),
	}))

	cmd, err := s2.RecvCommand()
	require.NoError(err)
	upd, ok := cmd.(*commands.ClipboardUpdate)
	require.True(ok)
	require.Equal([]byte("hello from one"), upd.Payload)
	require.NotZero(upd.Origin)
	originOne := upd.Origin

	// The reverse direction works, and the first session receives the
	// reply rather than an echo of its own update.
	require.NoError(s2.SendCommand(&commands.ClipboardUpdate{
		Sequence: 1,
		Kind:     commands.ItemText,
		Payload:  []byte("hello from two"),
	}))

	cmd, err = s1.RecvCommand()
	require.NoError(err)
	upd, ok = cmd.(*commands.ClipboardUpdate)
	require.True(ok)
	require.Equal([]byte("hello from two"), upd.Payload)
	require.NotZero(upd.Origin)
	require.NotEqual(originOne, upd.Origin)
}

func TestServerDisconnectCommand(t *testing.T) {
	require := require.New(t)

	svr, err := New(testServerConfig(t))
	require.NoError(err)
	defer svr.Shutdown()

	addr := svr.ListenerAddrs()[0].String()

	s1, c1 := dialSession(t, addr)
	defer c1.Close()
	defer s1.Close()

	require.NoError(s1.SendCommand(&commands.Disconnect{}))

	// The server tears the connection down; the next receive fails.
	c1.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, err = s1.RecvCommand()
	require.Error(err)
}

func TestServerEndToEndClients(t *testing.T) {
	require := require.New(t)

	svr, err := New(testServerConfig(t))
	require.NoError(err)
	defer svr.Shutdown()

	addr := "tcp://" + svr.ListenerAddrs()[0].String()

	newClient := func(clip clipboard.Clipboard) *client.Client {
		cfg := &cconfig.Config{
			Server:    &cconfig.Server{Address: addr},
			Clipboard: &cconfig.Clipboard{Backend: cconfig.BackendMemory, PollInterval: 10},
			Logging:   &cconfig.Logging{Disable: true},
		}
		require.NoError(cfg.FixupAndValidate())

		c, err := client.New(cfg, &client.Options{Clipboard: clip})
		require.NoError(err)
		return c
	}

	clipA := clipboard.NewMemory()
	clipB := clipboard.NewMemory()

	cA := newClient(clipA)
	defer cA.Shutdown()
	cB := newClient(clipB)
	defer cB.Shutdown()

	// A local edit on A propagates to B.
	require.NoError(clipA.Write([]byte("copied on A")))
	require.Eventually(func() bool {
		b, err := clipB.Read()
		return err == nil && string(b) == "copied on A"
	}, 15*time.Second, 10*time.Millisecond)

	// And the other way around.
	require.NoError(clipB.Write([]byte("copied on B")))
	require.Eventually(func() bool {
		b, err := clipA.Read()
		return err == nil && string(b) == "copied on B"
	}, 15*time.Second, 10*time.Millisecond)
}
