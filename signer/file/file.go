// Copyright 2023 The Vouch Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package file provides a signer provider that reads a PEM-encoded private
// key from disk.
package file

import (
	"context"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/vouchsafe/go-vouch/cryptoutil"
	"github.com/vouchsafe/go-vouch/registry"
	"github.com/vouchsafe/go-vouch/signer"
)

func init() {
	signer.Register("file", func() signer.SignerProvider { return New() },
		registry.StringConfigOption(
			"key-path",
			"Path to the file containing the PEM-encoded private key",
			"",
			func(sp signer.SignerProvider, keyPath string) (signer.SignerProvider, error) {
				fsp, ok := sp.(FileSignerProvider)
				if !ok {
					return fsp, fmt.Errorf("provided signer provider is not a file signer provider")
				}

				WithKeyPath(keyPath)(&fsp)
				return fsp, nil
			},
		),
	)
}

type FileSignerProvider struct {
	KeyPath string
}

type Option func(fsp *FileSignerProvider)

func WithKeyPath(keyPath string) Option {
	return func(fsp *FileSignerProvider) {
		fsp.KeyPath = keyPath
	}
}

func New(opts ...Option) FileSignerProvider {
	fsp := FileSignerProvider{}
	for _, opt := range opts {
		opt(&fsp)
	}

	return fsp
}

func (fsp FileSignerProvider) Signer(ctx context.Context) (cryptoutil.Signer, error) {
	if fsp.KeyPath == "" {
		return nil, fmt.Errorf("no key path configured")
	}

	keyPath, err := homedir.Expand(fsp.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand key path: %w", err)
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}

	defer keyFile.Close()
	s, err := cryptoutil.NewSignerFromReader(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load key from %v: %w", keyPath, err)
	}

	return s, nil
}
