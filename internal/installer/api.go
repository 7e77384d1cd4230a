// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package installer

import (
	"context"

	"github.com/edgelesssys/asinstaller/internal/xmlrpc"
)

// Access Server configuration keys for the web server certificate.
const (
	KeyPrivateKey = "cs.priv_key"
	KeyCert       = "cs.cert"
	KeyCABundle   = "cs.ca_bundle"
)

// Start modes accepted by RunStart.
const (
	// StartWarm reloads the configuration without dropping active sessions.
	StartWarm = "warm"
)

type caller interface {
	Call(ctx context.Context, method string, params ...any) (any, error)
}

// configPut sets a single Access Server configuration key.
func configPut(ctx context.Context, c caller, key, value string) error {
	_, err := c.Call(ctx, "ConfigPut", xmlrpc.Struct{{Name: key, Value: value}})
	return err
}

// runStart (re)starts the Access Server services in the given mode.
func runStart(ctx context.Context, c caller, mode string) error {
	_, err := c.Call(ctx, "RunStart", mode)
	return err
}
