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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vouchsafe/go-vouch/proof"
	"github.com/vouchsafe/go-vouch/trust"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vouch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
roots:
  - abc123
workers: 8
policy:
  max-distance: 3
  min-trust-level: medium
  min-thoroughness: high
  min-understanding: low
repositories:
  - type: fs
    location: /tmp/proofs
  - type: git
    location: https://example.com/proofs.git
    pattern: "*.json"
    ttl: 5m
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123"}, c.Roots)
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, 3, c.Policy.MaxDistance)
	require.Len(t, c.Repositories, 2)
	assert.Equal(t, "git", c.Repositories[1].Type)
	assert.Equal(t, 5*time.Minute, c.Repositories[1].TTL)

	policy, err := c.TrustPolicy()
	require.NoError(t, err)
	assert.Equal(t, trust.Policy{
		MaxDistance:      3,
		MinTrustLevel:    proof.TrustMedium,
		MinThoroughness:  proof.LevelHigh,
		MinUnderstanding: proof.LevelLow,
	}, policy)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	policy, err := c.TrustPolicy()
	require.NoError(t, err)
	assert.Equal(t, trust.DefaultPolicy(), policy)
	assert.Empty(t, c.Roots)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("VOUCH_WORKERS", "7")
	t.Setenv("VOUCH_POLICY_MIN_TRUST_LEVEL", "high")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, c.Workers)

	policy, err := c.TrustPolicy()
	require.NoError(t, err)
	assert.Equal(t, proof.TrustHigh, policy.MinTrustLevel)
}

func TestTrustPolicyRejectsBadLevel(t *testing.T) {
	c := DefaultConfig()
	c.Policy.MinTrustLevel = "absolute"

	_, err := c.TrustPolicy()
	require.Error(t, err)
	assert.ErrorAs(t, err, &trust.ErrInvalidPolicy{})
}

func TestProofRepositories(t *testing.T) {
	c := Config{Repositories: []Repository{
		{Type: "fs", Location: t.TempDir()},
		{Type: "git", Location: "https://example.com/proofs.git", TTL: time.Minute},
	}}

	repositories, err := c.ProofRepositories()
	require.NoError(t, err)
	require.Len(t, repositories, 2)
	assert.Contains(t, repositories[0].Name(), "fs:")
	assert.Contains(t, repositories[1].Name(), "git:")
}

func TestProofRepositoriesRejectsUnknownType(t *testing.T) {
	c := Config{Repositories: []Repository{{Type: "ftp", Location: "ftp://example.com"}}}
	_, err := c.ProofRepositories()
	assert.Error(t, err)
}
