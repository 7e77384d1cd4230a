// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package installer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when the Access Server socket does not exist.
	ErrNotReady = errors.New("access server socket does not exist")
	// ErrNotPrepared is returned when an operation needs a connection but Prepare was not called.
	ErrNotPrepared = errors.New("installer not prepared")
	// ErrNotSupported is returned for capabilities the Access Server does not offer.
	ErrNotSupported = errors.New("not supported")
	// ErrNotText is returned when a file deployed by content is not UTF-8 text.
	ErrNotText = errors.New("not UTF-8 text")
)

// DeployError is returned when pushing a certificate field to the server failed.
type DeployError struct {
	Key string
	Err error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("deploying %s: %v", e.Key, e.Err)
}

func (e *DeployError) Unwrap() error {
	return e.Err
}

// RestartError is returned when the server could not be restarted.
type RestartError struct {
	Err error
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("restarting access server: %v", e.Err)
}

func (e *RestartError) Unwrap() error {
	return e.Err
}
