// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package unixrpc

import (
	"context"
	"net"
)

// Dialer opens a byte stream to an endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (net.Conn, error)
}

// UnixDialer connects to Unix domain stream sockets addressed by filesystem path.
type UnixDialer struct{}

// Dial connects to the socket at endpoint.
func (UnixDialer) Dial(ctx context.Context, endpoint string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", endpoint)
}
