// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package glue implements the glue structure that ties all the internal
// subpackages together.
package glue

import (
	"net"

	"github.com/clipwire/clipwire/core/log"
	"github.com/clipwire/clipwire/server/config"
	"github.com/clipwire/clipwire/server/internal/registry"
)

// Glue is the structure that binds the internal components together.
type Glue interface {
	Config() *config.Config
	LogBackend() *log.Backend
	Registry() *registry.Registry
	Listeners() []Listener
}

type Listener interface {
	Halt()
	Addr() net.Addr
}
