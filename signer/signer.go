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

// Package signer defines the provider interface used to obtain proof signing
// keys and a registry of available providers.
package signer

import (
	"context"
	"fmt"

	"github.com/vouchsafe/go-vouch/cryptoutil"
	"github.com/vouchsafe/go-vouch/registry"
)

// SignerProvider produces the signer an identity uses to sign proofs. Where
// the key material lives is the provider's concern: a file on disk, an
// environment variable, an agent.
type SignerProvider interface {
	Signer(ctx context.Context) (cryptoutil.Signer, error)
}

var signerRegistry = registry.New[SignerProvider]()

// Register adds a signer provider to the registry. Providers call this from
// their package init.
func Register(name string, factory registry.FactoryFunc[SignerProvider], opts ...registry.Configurer) {
	signerRegistry.Register(name, factory, opts...)
}

// RegistryEntries returns the registry entries for every registered signer
// provider.
func RegistryEntries() []registry.Entry[SignerProvider] {
	return signerRegistry.AllEntries()
}

// NewSignerProvider creates the named signer provider with its default
// options, then applies the given setters.
func NewSignerProvider(name string, optSetters ...func(SignerProvider) (SignerProvider, error)) (SignerProvider, error) {
	provider, err := signerRegistry.NewEntity(name, optSetters...)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer provider %v: %w", name, err)
	}

	return provider, nil
}

// NewSignerProviderFromConfigMap creates the named signer provider with its
// options set from the config map.
func NewSignerProviderFromConfigMap(name string, configMap map[string]any) (SignerProvider, error) {
	provider, err := signerRegistry.NewEntityFromConfigMap(name, configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer provider %v: %w", name, err)
	}

	return provider, nil
}
