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

package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vouchsafe/go-vouch/cryptoutil"
	"github.com/vouchsafe/go-vouch/signer"
)

func TestFileSignerProvider(t *testing.T) {
	generated, privPem, _, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)

	keyPath := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(keyPath, privPem, 0o600))

	provider, err := signer.NewSignerProviderFromConfigMap("file", map[string]any{"key-path": keyPath})
	require.NoError(t, err)

	s, err := provider.Signer(context.Background())
	require.NoError(t, err)

	wantKeyID, err := generated.KeyID()
	require.NoError(t, err)
	gotKeyID, err := s.KeyID()
	require.NoError(t, err)
	assert.Equal(t, wantKeyID, gotKeyID)

	sig, err := s.Sign(context.Background(), []byte("payload"))
	require.NoError(t, err)

	verifier, err := s.Verifier()
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify(context.Background(), []byte("payload"), sig))
}

func TestFileSignerProviderMissingKeyPath(t *testing.T) {
	provider := New()
	_, err := provider.Signer(context.Background())
	assert.Error(t, err)
}

func TestFileSignerProviderMissingFile(t *testing.T) {
	provider := New(WithKeyPath(filepath.Join(t.TempDir(), "absent.pem")))
	_, err := provider.Signer(context.Background())
	assert.Error(t, err)
}
