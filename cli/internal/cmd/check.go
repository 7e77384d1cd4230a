// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmd

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type readinessChecker interface {
	CheckReady() error
}

// NewCheckCmd returns the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the OpenVPN Access Server socket is available",
		Long:  `Check that the OpenVPN Access Server socket is available`,
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	inst, log, err := newInstaller(cmd, afero.NewOsFs())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	return cliCheck(cmd, inst)
}

// cliCheck verifies the Access Server socket exists.
func cliCheck(cmd *cobra.Command, checker readinessChecker) error {
	if err := checker.CheckReady(); err != nil {
		return err
	}
	cmd.Println("OpenVPN Access Server socket is available")
	return nil
}
