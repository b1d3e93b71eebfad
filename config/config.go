// Copyright 2024 The Vouch Contributors
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

// Package config loads vouch configuration from files and the environment
// and converts it into the policy and repository values the rest of the
// module consumes.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/vouchsafe/go-vouch/proof"
	"github.com/vouchsafe/go-vouch/repo"
	"github.com/vouchsafe/go-vouch/trust"
)

// Repository configures one proof repository to load proofs from.
type Repository struct {
	// Type selects the transport, either "fs" or "git".
	Type     string `mapstructure:"type"`
	Location string `mapstructure:"location"`
	// Pattern overrides the proof file glob.
	Pattern string `mapstructure:"pattern"`
	// TTL bounds how stale a cached git checkout may get before it is
	// pulled again. Only meaningful for git repositories.
	TTL time.Duration `mapstructure:"ttl"`
}

// PolicyConfig holds the trust policy in its textual configuration form.
type PolicyConfig struct {
	MaxDistance      int    `mapstructure:"max-distance"`
	MinTrustLevel    string `mapstructure:"min-trust-level"`
	MinThoroughness  string `mapstructure:"min-thoroughness"`
	MinUnderstanding string `mapstructure:"min-understanding"`
}

type Config struct {
	// Roots are the key IDs of the identities trusted unconditionally.
	Roots        []string     `mapstructure:"roots"`
	Repositories []Repository `mapstructure:"repositories"`
	// Workers bounds the scan worker pool. Zero means one per CPU.
	Workers int          `mapstructure:"workers"`
	Policy  PolicyConfig `mapstructure:"policy"`
}

// Load reads configuration from the given file, or from vouch.yaml in the
// working directory or ~/.config/vouch when path is empty. Environment
// variables prefixed with VOUCH_ override file values. A missing config file
// is only an error when a path was given explicitly.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("policy.max-distance", defaults.Policy.MaxDistance)
	v.SetDefault("policy.min-trust-level", defaults.Policy.MinTrustLevel)
	v.SetDefault("policy.min-thoroughness", defaults.Policy.MinThoroughness)
	v.SetDefault("policy.min-understanding", defaults.Policy.MinUnderstanding)

	v.SetEnvPrefix("VOUCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %v: %w", path, err)
		}
	} else {
		v.SetConfigName("vouch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "vouch"))
		}

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	config := Config{}
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	policy := trust.DefaultPolicy()
	return Config{
		Policy: PolicyConfig{
			MaxDistance:      policy.MaxDistance,
			MinTrustLevel:    policy.MinTrustLevel.String(),
			MinThoroughness:  policy.MinThoroughness.String(),
			MinUnderstanding: policy.MinUnderstanding.String(),
		},
	}
}

// TrustPolicy converts the textual policy into a validated trust.Policy.
func (c Config) TrustPolicy() (trust.Policy, error) {
	policy := trust.Policy{MaxDistance: c.Policy.MaxDistance}

	var err error
	if policy.MinTrustLevel, err = proof.ParseTrustLevel(c.Policy.MinTrustLevel); err != nil {
		return trust.Policy{}, trust.ErrInvalidPolicy{Field: "MinTrustLevel", Reason: err.Error()}
	}

	if policy.MinThoroughness, err = proof.ParseLevel(c.Policy.MinThoroughness); err != nil {
		return trust.Policy{}, trust.ErrInvalidPolicy{Field: "MinThoroughness", Reason: err.Error()}
	}

	if policy.MinUnderstanding, err = proof.ParseLevel(c.Policy.MinUnderstanding); err != nil {
		return trust.Policy{}, trust.ErrInvalidPolicy{Field: "MinUnderstanding", Reason: err.Error()}
	}

	if err := policy.Validate(); err != nil {
		return trust.Policy{}, err
	}

	return policy, nil
}

// ProofRepositories builds the configured proof repositories.
func (c Config) ProofRepositories() ([]repo.Repository, error) {
	repositories := make([]repo.Repository, 0, len(c.Repositories))
	for _, r := range c.Repositories {
		switch r.Type {
		case "fs":
			opts := []repo.FSOption{}
			if r.Pattern != "" {
				opts = append(opts, repo.FSWithPattern(r.Pattern))
			}

			fsRepo, err := repo.NewFS(r.Location, opts...)
			if err != nil {
				return nil, err
			}

			repositories = append(repositories, fsRepo)

		case "git":
			opts := []repo.GitOption{}
			if r.Pattern != "" {
				opts = append(opts, repo.GitWithPattern(r.Pattern))
			}

			if r.TTL > 0 {
				opts = append(opts, repo.GitWithFetchTTL(r.TTL))
			}

			gitRepo, err := repo.NewGit(r.Location, opts...)
			if err != nil {
				return nil, err
			}

			repositories = append(repositories, gitRepo)

		default:
			return nil, fmt.Errorf("unrecognized proof repository type %v", r.Type)
		}
	}

	return repositories, nil
}
