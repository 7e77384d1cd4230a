// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmd

import (
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type describer interface {
	MoreInfo() string
	SupportedEnhancements() []string
	GetAllNames() ([]string, error)
}

// NewInfoCmd returns the info command.
func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show what the installer supports",
		Long:  `Show what the installer supports`,
		Args:  cobra.NoArgs,
		RunE:  runInfo,
	}

	return cmd
}

func runInfo(cmd *cobra.Command, _ []string) error {
	inst, log, err := newInstaller(cmd, afero.NewOsFs())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cliInfo(cmd, inst)
	return nil
}

func cliInfo(cmd *cobra.Command, inst describer) {
	cmd.Println(inst.MoreInfo())

	enhancements := "none"
	if supported := inst.SupportedEnhancements(); len(supported) > 0 {
		enhancements = strings.Join(supported, ", ")
	}
	cmd.Printf("Supported enhancements: %s\n", enhancements)

	if names, err := inst.GetAllNames(); err != nil {
		cmd.Printf("Domain detection: %s\n", err)
	} else {
		cmd.Printf("Domains: %s\n", strings.Join(names, ", "))
	}
}
