// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package installer deploys certificates into OpenVPN Access Server.
//
// The installer talks to the server's XML-RPC daemon on its local socket.
// A deployment sets the private key, the certificate and the CA bundle with one
// ConfigPut call each, in that order, and a restart reloads the server with RunStart.
// Calls are not transactional: a failing call leaves the earlier ones applied.
package installer

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/edgelesssys/asinstaller/internal/config"
	"github.com/edgelesssys/asinstaller/internal/unixrpc"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Installer implements the certificate installer lifecycle for OpenVPN Access Server.
type Installer struct {
	cfg       config.Config
	fs        afero.Afero
	newCaller func(endpoint string) caller
	rpc       caller
	log       *zap.Logger
}

// New returns an Installer. Connections to the server are opened with dialer.
func New(cfg config.Config, fs afero.Fs, dialer unixrpc.Dialer, log *zap.Logger) *Installer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Installer{
		cfg: cfg,
		fs:  afero.Afero{Fs: fs},
		newCaller: func(endpoint string) caller {
			return unixrpc.New(endpoint, dialer, cfg.Timeout, log)
		},
		log: log,
	}
}

// CheckReady verifies that the Access Server socket exists.
func (i *Installer) CheckReady() error {
	exists, err := i.fs.Exists(i.cfg.Socket)
	if err != nil {
		return fmt.Errorf("checking access server socket %s: %w", i.cfg.Socket, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s, check that OpenVPN Access Server is installed and running", ErrNotReady, i.cfg.Socket)
	}
	return nil
}

// Prepare checks that the server is reachable and binds the RPC client to its socket.
// It must be called before DeployCert and Restart.
func (i *Installer) Prepare() error {
	if err := i.CheckReady(); err != nil {
		return err
	}
	i.rpc = i.newCaller(i.cfg.Socket)
	i.log.Debug("Prepared installer", zap.String("socket", i.cfg.Socket), zap.String("mode", string(i.cfg.Mode)))
	return nil
}

// DeployCert sets private key, certificate and CA bundle on the server.
// domain and fullchainPath are part of the installer contract but not needed by Access Server.
func (i *Installer) DeployCert(ctx context.Context, domain, certPath, keyPath, chainPath, fullchainPath string) error {
	if i.rpc == nil {
		return ErrNotPrepared
	}

	fields := []struct {
		key  string
		path string
	}{
		{key: KeyPrivateKey, path: keyPath},
		{key: KeyCert, path: certPath},
		{key: KeyCABundle, path: chainPath},
	}

	i.log.Info("Deploying certificate", zap.String("domain", domain), zap.String("mode", string(i.cfg.Mode)))
	for _, f := range fields {
		value, err := i.fieldValue(f.path)
		if err != nil {
			return fmt.Errorf("reading %s for %s: %w", f.path, f.key, err)
		}

		i.log.Info("Setting configuration key", zap.String("key", f.key), zap.String("path", f.path))
		if err := configPut(ctx, i.rpc, f.key, value); err != nil {
			return &DeployError{Key: f.key, Err: err}
		}
	}
	i.log.Info("Certificate deployed", zap.String("domain", domain))
	return nil
}

// fieldValue returns what is sent for the file at path, depending on the deployment mode.
func (i *Installer) fieldValue(path string) (string, error) {
	if i.cfg.PathOnly() {
		return path, nil
	}
	content, err := i.fs.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(content) {
		return "", &os.PathError{Op: "read", Path: path, Err: ErrNotText}
	}
	return string(content), nil
}

// Enhance is a no-op, Access Server offers no enhancements.
func (i *Installer) Enhance(_, _ string, _ []string) error {
	return nil
}

// Restart reloads Access Server without dropping active sessions.
func (i *Installer) Restart(ctx context.Context) error {
	if i.rpc == nil {
		return ErrNotPrepared
	}
	i.log.Info("Restarting access server", zap.String("mode", StartWarm))
	if err := runStart(ctx, i.rpc, StartWarm); err != nil {
		return &RestartError{Err: err}
	}
	return nil
}

// Save is a no-op, the server persists configuration on its own.
func (i *Installer) Save(_ string, _ bool) error {
	return nil
}

// SupportedEnhancements returns no enhancements.
func (i *Installer) SupportedEnhancements() []string {
	return []string{}
}

// GetAllNames always fails, Access Server has no way to list its domains.
func (i *Installer) GetAllNames() ([]string, error) {
	return nil, fmt.Errorf("automatic domain detection: %w", ErrNotSupported)
}

// MoreInfo describes the installer.
func (i *Installer) MoreInfo() string {
	return "This installer deploys a TLS certificate for the web services of an OpenVPN Access Server instance " +
		"through its local XML-RPC socket " + i.cfg.Socket
}
