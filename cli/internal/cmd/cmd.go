// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cmd implements the asinstaller CLI commands.
package cmd

import (
	"os"

	"github.com/edgelesssys/asinstaller/internal/config"
	"github.com/edgelesssys/asinstaller/internal/constants"
	"github.com/edgelesssys/asinstaller/internal/installer"
	"github.com/edgelesssys/asinstaller/internal/logging"
	"github.com/edgelesssys/asinstaller/internal/unixrpc"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const globalUsage = `The asinstaller CLI deploys TLS certificates into a running
OpenVPN Access Server through its local XML-RPC socket

To install a certificate and reload the server, run:

    $ asinstaller deploy --cert-path cert.pem --key-path privkey.pem --chain-path chain.pem --restart
`

// NewRootCmd returns the root command of the CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "asinstaller",
		Short:        "Deploy TLS certificates into OpenVPN Access Server",
		Long:         globalUsage,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().String("socket", config.DefaultSocket, "Socket for the connection to the OpenVPN Access Server XML-RPC daemon")
	cmd.PersistentFlags().Bool("path-only", false, "Upload only the certificate paths instead of the certificate contents")
	cmd.PersistentFlags().Duration("timeout", 0, "Deadline for each RPC connection, 0 disables it")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewDeployCmd())
	cmd.AddCommand(NewRestartCmd())
	cmd.AddCommand(NewInfoCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// parseConfig builds the installer configuration from an optional config file and the command line flags.
// Flags set on the command line take precedence over the file.
func parseConfig(flags *pflag.FlagSet, fs afero.Fs) (config.Config, error) {
	cfg := config.Default()

	configFile, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if configFile != "" {
		cfg, err = config.Load(fs, configFile)
		if err != nil {
			return config.Config{}, err
		}
	}

	if flags.Changed("socket") {
		if cfg.Socket, err = flags.GetString("socket"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("path-only") {
		pathOnly, err := flags.GetBool("path-only")
		if err != nil {
			return config.Config{}, err
		}
		cfg.Mode = config.ModeContent
		if pathOnly {
			cfg.Mode = config.ModePathOnly
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return config.Config{}, err
		}
	}

	return cfg, cfg.Validate()
}

func newLogger(flags *pflag.FlagSet) (*zap.Logger, error) {
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}
	devMode := os.Getenv(constants.EnvDevMode)
	if devMode == "" {
		devMode = constants.DevModeDefault
	}
	return logging.New(verbose || devMode == "1")
}

// newInstaller creates an installer from the command's flags.
func newInstaller(cmd *cobra.Command, fs afero.Fs) (*installer.Installer, *zap.Logger, error) {
	cfg, err := parseConfig(cmd.Flags(), fs)
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	return installer.New(cfg, fs, unixrpc.UnixDialer{}, log), log, nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
