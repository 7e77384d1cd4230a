// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package constants

import "time"

const (
	// EnvDevMode is the name of the environment variable enabling development logging.
	// Set it to "1" for human-readable debug logs.
	EnvDevMode = "AS_INSTALLER_DEVMODE"
	// DevModeDefault is the default value of EnvDevMode.
	DevModeDefault = "0"

	// LockFileDefault is the lock file serializing deployments on a host.
	// Its directory must not be writable by other users.
	LockFileDefault = "/run/asinstaller.lock"
	// LockTimeoutDefault is how long a deployment waits for the lock.
	LockTimeoutDefault = 30 * time.Second
)
