// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	assert.Equal(DefaultSocket, cfg.Socket)
	assert.Equal(ModeContent, cfg.Mode)
	assert.Zero(cfg.Timeout)
	assert.False(cfg.PathOnly())
	assert.NoError(cfg.Validate())
}

func TestLoad(t *testing.T) {
	testCases := map[string]struct {
		content string
		noFile  bool
		want    Config
		wantErr bool
	}{
		"empty file keeps defaults": {
			content: "",
			want:    Default(),
		},
		"all fields": {
			content: "socket: /run/as.sock\nmode: path-only\ntimeout: 5s\n",
			want: Config{
				Socket:  "/run/as.sock",
				Mode:    ModePathOnly,
				Timeout: 5 * time.Second,
			},
		},
		"partial": {
			content: "mode: path-only\n",
			want: Config{
				Socket: DefaultSocket,
				Mode:   ModePathOnly,
			},
		},
		"unknown mode": {
			content: "mode: inline\n",
			wantErr: true,
		},
		"empty socket": {
			content: "socket: \"\"\n",
			wantErr: true,
		},
		"negative timeout": {
			content: "timeout: -1s\n",
			wantErr: true,
		},
		"invalid yaml": {
			content: "socket: [\n",
			wantErr: true,
		},
		"missing file": {
			noFile:  true,
			wantErr: true,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			fs := afero.NewMemMapFs()
			if !tc.noFile {
				require.NoError(t, afero.WriteFile(fs, "/etc/asinstaller.yaml", []byte(tc.content), 0o644))
			}

			cfg, err := Load(fs, "/etc/asinstaller.yaml")
			if tc.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.want, cfg)
		})
	}
}

func TestPathOnly(t *testing.T) {
	assert.True(t, Config{Mode: ModePathOnly}.PathOnly())
	assert.False(t, Config{Mode: ModeContent}.PathOnly())
}
