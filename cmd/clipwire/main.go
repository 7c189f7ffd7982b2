// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/clipwire/clipwire/client"
	"github.com/clipwire/clipwire/client/config"
)

func newRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "clipwire",
		Short: "clipwire clipboard replication client",
		Long: `clipwire watches the local clipboard and replicates changes to every
other client connected to the same relay server.  Remote changes are
applied to the local clipboard as they arrive.`,
		Example: `  # Start the client with the default configuration file
  clipwire

  # Start the client with a custom configuration file
  clipwire -f ~/.config/clipwire/client.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cfgFile)
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "f", "clipwire.toml",
		"path to the client configuration file (TOML format)")

	return cmd
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCommand(),
		fang.WithVersion(versioninfo.Short()),
	); err != nil {
		os.Exit(1)
	}
}

func runClient(cfgFile string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config file '%v': %v", cfgFile, err)
	}

	// Setup the signal handling.
	haltCh := make(chan os.Signal, 1)
	signal.Notify(haltCh, os.Interrupt, syscall.SIGTERM)

	rotateCh := make(chan os.Signal, 1)
	signal.Notify(rotateCh, syscall.SIGHUP)

	c, err := client.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to spawn client instance: %v", err)
	}
	defer c.Shutdown()

	// Halt the client gracefully on SIGINT/SIGTERM.
	go func() {
		<-haltCh
		c.Shutdown()
	}()

	// Rotate client logs upon SIGHUP.
	go func() {
		<-rotateCh
		_ = c.RotateLog()
	}()

	// Wait for the client to explode or be terminated.
	c.Wait()
	return nil
}
