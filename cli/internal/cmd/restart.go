// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type restarter interface {
	Prepare() error
	Restart(ctx context.Context) error
}

// NewRestartCmd returns the restart command.
func NewRestartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Reload OpenVPN Access Server without dropping active sessions",
		Long:  `Reload OpenVPN Access Server without dropping active sessions`,
		Args:  cobra.NoArgs,
		RunE:  runRestart,
	}

	return cmd
}

func runRestart(cmd *cobra.Command, _ []string) error {
	inst, log, err := newInstaller(cmd, afero.NewOsFs())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	return cliRestart(cmd, inst)
}

func cliRestart(cmd *cobra.Command, inst restarter) error {
	if err := inst.Prepare(); err != nil {
		return err
	}
	if err := inst.Restart(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("OpenVPN Access Server restarted")
	return nil
}
