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

package vouch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vouchsafe/go-vouch/cryptoutil"
	"github.com/vouchsafe/go-vouch/proof"
	"github.com/vouchsafe/go-vouch/repo"
	"github.com/vouchsafe/go-vouch/scan"
	"github.com/vouchsafe/go-vouch/trust"
	"github.com/vouchsafe/go-vouch/verify"
)

func TestSignAndVerifySignature(t *testing.T) {
	ctx := context.Background()
	signer, _, _, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)

	trustee, _, _, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)
	trusteeIdentity, err := proof.IdentityFromSigner(trustee, "")
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	signed, err := SignTrust(ctx, signer, proof.TrustBody{
		Trustee: trusteeIdentity,
		Trust:   proof.TrustMedium,
	}, buf)
	require.NoError(t, err)

	parsed, err := VerifySignature(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, proof.KindTrust, parsed.Kind)
	assert.Equal(t, signed.ContentHash, parsed.ContentHash)
	assert.Equal(t, proof.TrustMedium, parsed.Trust.Trust)
}

func TestScanEndToEnd(t *testing.T) {
	ctx := context.Background()
	proofDir := t.TempDir()

	root, _, _, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)
	rootID, err := root.KeyID()
	require.NoError(t, err)

	reviewer, _, _, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)
	reviewerIdentity, err := proof.IdentityFromSigner(reviewer, "")
	require.NoError(t, err)

	writeDoc := func(name string, p proof.Proof) {
		data, err := p.Encode()
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(proofDir, name), data, 0o644))
	}

	trustProof, err := proof.CreateTrust(ctx, root, proof.TrustBody{
		Trustee: reviewerIdentity,
		Trust:   proof.TrustHigh,
	})
	require.NoError(t, err)
	writeDoc("trust.proof.json", trustProof)

	reviewProof, err := proof.CreateReview(ctx, reviewer, proof.ReviewBody{
		Package: proof.PackageRef{Name: "leftpad", Version: "1.0.3", Digest: "d1"},
		Review: proof.ReviewRatings{
			Thoroughness:  proof.LevelHigh,
			Understanding: proof.LevelHigh,
			Rating:        proof.AssertionPositive,
		},
	})
	require.NoError(t, err)
	writeDoc("review.proof.json", reviewProof)

	fsRepo, err := repo.NewFS(proofDir)
	require.NoError(t, err)

	digest := func(d string) scan.DigestFunc {
		return func(context.Context) (string, error) { return d, nil }
	}

	result, err := Scan(ctx, []scan.Dependency{
		{Name: "leftpad", Version: "1.0.3", Digest: digest("d1")},
		{Name: "leftpad", Version: "1.0.3", Digest: digest("d2")},
		{Name: "unreviewed", Version: "0.1.0", Digest: digest("d3")},
	},
		ScanWithRepositories(fsRepo),
		ScanWithRoots(rootID),
		ScanWithWorkers(2),
	)
	require.NoError(t, err)
	require.Len(t, result.Results, 3)
	assert.False(t, result.Degraded)
	assert.Empty(t, result.Diagnostics)

	assert.Equal(t, verify.VerdictVerified, result.Results[0].Verdict)
	assert.Equal(t, verify.VerdictDangerous, result.Results[1].Verdict)
	assert.Equal(t, verify.VerdictUnknown, result.Results[2].Verdict)
}

func TestPublishAndReload(t *testing.T) {
	ctx := context.Background()
	signer, _, _, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)

	trustee, _, _, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)
	trusteeIdentity, err := proof.IdentityFromSigner(trustee, "")
	require.NoError(t, err)

	p, err := proof.CreateTrust(ctx, signer, proof.TrustBody{
		Trustee: trusteeIdentity,
		Trust:   proof.TrustHigh,
	})
	require.NoError(t, err)

	fsRepo, err := repo.NewFS(t.TempDir())
	require.NoError(t, err)

	ref, err := Publish(p, fsRepo)
	require.NoError(t, err)
	assert.Contains(t, ref, p.Issuer().ID)

	docs, err := fsRepo.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	reloaded, err := proof.Parse(ctx, docs[0].Bytes)
	require.NoError(t, err)
	assert.Equal(t, p.ContentHash, reloaded.ContentHash)
}

func TestScanSurfacesDependencyDiagnostics(t *testing.T) {
	result, err := Scan(context.Background(), []scan.Dependency{
		{Name: "pkg", Version: "1.0.0"},
	})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, verify.VerdictUnknown, result.Results[0].Verdict)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "pkg@1.0.0", result.Diagnostics[0].Reference)
	assert.Error(t, result.Diagnostics[0].Err)
}

func TestScanRejectsInvalidPolicy(t *testing.T) {
	_, err := Scan(context.Background(), nil, ScanWithPolicy(trust.Policy{}))
	require.Error(t, err)
	assert.ErrorAs(t, err, &trust.ErrInvalidPolicy{})
}

func TestVerifyPackageSingleCoordinate(t *testing.T) {
	result, err := VerifyPackage(context.Background(), "pkg", "1.0.0", "d1")
	require.NoError(t, err)
	assert.Equal(t, verify.VerdictUnknown, result.Verdict)
}
