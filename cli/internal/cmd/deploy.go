// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/edgelesssys/asinstaller/internal/constants"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type deployer interface {
	Prepare() error
	DeployCert(ctx context.Context, domain, certPath, keyPath, chainPath, fullchainPath string) error
	Save(title string, temporary bool) error
	Restart(ctx context.Context) error
}

type deployOptions struct {
	domain        string
	certPath      string
	keyPath       string
	chainPath     string
	fullchainPath string
	restart       bool
}

// NewDeployCmd returns the deploy command.
func NewDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a certificate into OpenVPN Access Server",
		Long: `Deploy a certificate into OpenVPN Access Server.

The private key, the certificate and the CA bundle are set one after another.
If setting one of them fails, the ones set before stay applied.
With --path-only the server reads the files itself, so it needs read access to them.`,
		Args: cobra.NoArgs,
		RunE: runDeploy,
	}

	cmd.Flags().String("domain", "", "Domain the certificate was issued for")
	cmd.Flags().String("cert-path", "", "Path to the PEM encoded certificate")
	cmd.Flags().String("key-path", "", "Path to the PEM encoded private key")
	cmd.Flags().String("chain-path", "", "Path to the PEM encoded CA chain")
	cmd.Flags().String("fullchain-path", "", "Path to the PEM encoded certificate including its chain")
	cmd.Flags().Bool("restart", false, "Restart Access Server after deploying the certificate")
	cmd.Flags().String("lock-file", constants.LockFileDefault, "File used to serialize deployments on this host")
	cmd.Flags().Duration("lock-timeout", constants.LockTimeoutDefault, "How long to wait for another deployment on this host to finish")
	must(cmd.MarkFlagRequired("cert-path"))
	must(cmd.MarkFlagRequired("key-path"))
	must(cmd.MarkFlagRequired("chain-path"))

	return cmd
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	opts, err := parseDeployOptions(cmd)
	if err != nil {
		return err
	}
	lockFile, err := cmd.Flags().GetString("lock-file")
	if err != nil {
		return err
	}
	lockTimeout, err := cmd.Flags().GetDuration("lock-timeout")
	if err != nil {
		return err
	}

	inst, log, err := newInstaller(cmd, afero.NewOsFs())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Acquire a file lock so concurrent deployments on this host do not interleave their calls
	fileLock := flock.New(lockFile)
	lockCtx, cancel := context.WithTimeout(cmd.Context(), lockTimeout)
	defer cancel()
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay(lockTimeout))
	if err == nil && locked {
		defer fileLock.Unlock()
	}
	if err != nil {
		return fmt.Errorf("acquiring deployment lock %s: %w", lockFile, err)
	}

	return cliDeploy(cmd, inst, opts)
}

// lockRetryDelay polls once per second, or more often for short timeouts.
func lockRetryDelay(timeout time.Duration) time.Duration {
	return min(time.Second, max(timeout/10, 10*time.Millisecond))
}

func parseDeployOptions(cmd *cobra.Command) (deployOptions, error) {
	var opts deployOptions
	var err error
	if opts.domain, err = cmd.Flags().GetString("domain"); err != nil {
		return deployOptions{}, err
	}
	if opts.certPath, err = cmd.Flags().GetString("cert-path"); err != nil {
		return deployOptions{}, err
	}
	if opts.keyPath, err = cmd.Flags().GetString("key-path"); err != nil {
		return deployOptions{}, err
	}
	if opts.chainPath, err = cmd.Flags().GetString("chain-path"); err != nil {
		return deployOptions{}, err
	}
	if opts.fullchainPath, err = cmd.Flags().GetString("fullchain-path"); err != nil {
		return deployOptions{}, err
	}
	if opts.restart, err = cmd.Flags().GetBool("restart"); err != nil {
		return deployOptions{}, err
	}
	return opts, nil
}

// cliDeploy runs the installer lifecycle for a single certificate.
func cliDeploy(cmd *cobra.Command, inst deployer, opts deployOptions) error {
	if err := inst.Prepare(); err != nil {
		return err
	}
	if err := inst.DeployCert(cmd.Context(), opts.domain, opts.certPath, opts.keyPath, opts.chainPath, opts.fullchainPath); err != nil {
		return err
	}
	if err := inst.Save("certificate deployment", false); err != nil {
		return err
	}
	cmd.Println("Certificate deployed")

	if !opts.restart {
		cmd.Println("Restart OpenVPN Access Server to apply the new certificate")
		return nil
	}
	if err := inst.Restart(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("OpenVPN Access Server restarted")
	return nil
}
