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

package verify

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vouchsafe/go-vouch/cryptoutil"
	"github.com/vouchsafe/go-vouch/proof"
	"github.com/vouchsafe/go-vouch/repo"
	"github.com/vouchsafe/go-vouch/store"
	"github.com/vouchsafe/go-vouch/trust"
)

type memoryRepo struct {
	name string
	docs []repo.Document
	err  error
}

func (m *memoryRepo) Name() string {
	return m.name
}

func (m *memoryRepo) Documents(ctx context.Context) ([]repo.Document, error) {
	if m.err != nil {
		return nil, m.err
	}

	return m.docs, nil
}

type identity struct {
	signer cryptoutil.Signer
	id     string
}

func newIdentity(t *testing.T) identity {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer := cryptoutil.NewED25519Signer(priv)
	keyID, err := signer.KeyID()
	require.NoError(t, err)
	return identity{signer: signer, id: keyID}
}

func (i identity) trusts(t *testing.T, trustee identity, level proof.TrustLevel) proof.Proof {
	t.Helper()
	trusteeIdentity, err := proof.IdentityFromSigner(trustee.signer, "")
	require.NoError(t, err)
	p, err := proof.CreateTrust(context.Background(), i.signer, proof.TrustBody{
		Trustee: trusteeIdentity,
		Trust:   level,
	})
	require.NoError(t, err)
	return p
}

func (i identity) reviews(t *testing.T, name, version, digest string, ratings proof.ReviewRatings) proof.Proof {
	t.Helper()
	p, err := proof.CreateReview(context.Background(), i.signer, proof.ReviewBody{
		Package: proof.PackageRef{Name: name, Version: version, Digest: digest},
		Review:  ratings,
	})
	require.NoError(t, err)
	return p
}

func deepPositive() proof.ReviewRatings {
	return proof.ReviewRatings{
		Thoroughness:  proof.LevelHigh,
		Understanding: proof.LevelHigh,
		Rating:        proof.AssertionPositive,
	}
}

func buildVerifier(t *testing.T, roots []string, policy trust.Policy, proofs ...proof.Proof) *PackageVerifier {
	t.Helper()
	docs := make([]repo.Document, 0, len(proofs))
	for i, p := range proofs {
		data, err := p.Encode()
		require.NoError(t, err)
		docs = append(docs, repo.Document{
			Reference: fmt.Sprintf("mem:test/%d.proof.json", i),
			Bytes:     data,
		})
	}

	s, err := store.Load(context.Background(), []repo.Repository{&memoryRepo{name: "mem:test", docs: docs}})
	require.NoError(t, err)

	resolver, err := trust.NewResolver(trust.NewGraph(s.TrustProofs()), roots, policy)
	require.NoError(t, err)

	v, err := NewPackageVerifier(s, resolver, policy)
	require.NoError(t, err)
	return v
}

func TestVerifiedWhenTrustedReviewerMeetsDepthBars(t *testing.T) {
	root := newIdentity(t)
	x := newIdentity(t)

	v := buildVerifier(t, []string{root.id}, trust.DefaultPolicy(),
		root.trusts(t, x, proof.TrustHigh),
		x.reviews(t, "pkg", "1.0", "d1", deepPositive()),
	)

	result := v.Verify("pkg", "1.0", "d1")
	assert.Equal(t, VerdictVerified, result.Verdict)
	assert.Equal(t, proof.TrustHigh, result.ReviewerTrust)
	assert.Equal(t, 1, result.Distance)
	require.Len(t, result.Evidence, 2)
	assert.False(t, result.Degraded)
}

func TestUntrustedNegativeReviewDoesNotCount(t *testing.T) {
	root := newIdentity(t)
	x := newIdentity(t)
	y := newIdentity(t) // no path from the root

	negative := deepPositive()
	negative.Rating = proof.AssertionNegative

	v := buildVerifier(t, []string{root.id}, trust.DefaultPolicy(),
		root.trusts(t, x, proof.TrustHigh),
		x.reviews(t, "pkg", "1.0", "d1", deepPositive()),
		y.reviews(t, "pkg", "1.0", "d1", negative),
	)

	assert.Equal(t, VerdictVerified, v.Verify("pkg", "1.0", "d1").Verdict)
}

func TestDangerousWhenContentChangedSinceReview(t *testing.T) {
	root := newIdentity(t)
	x := newIdentity(t)

	v := buildVerifier(t, []string{root.id}, trust.DefaultPolicy(),
		root.trusts(t, x, proof.TrustHigh),
		x.reviews(t, "pkg", "1.0", "d1", deepPositive()),
	)

	result := v.Verify("pkg", "1.0", "d2")
	assert.Equal(t, VerdictDangerous, result.Verdict)
	assert.Equal(t, proof.TrustHigh, result.ReviewerTrust)
}

func TestUnknownWhenReviewerBelowMinimumTrust(t *testing.T) {
	root := newIdentity(t)
	x := newIdentity(t)
	y := newIdentity(t)

	policy := trust.DefaultPolicy()
	policy.MinTrustLevel = proof.TrustMedium

	// y's effective trust is capped at low by the weakest edge on the path
	v := buildVerifier(t, []string{root.id}, policy,
		root.trusts(t, x, proof.TrustMedium),
		x.trusts(t, y, proof.TrustLow),
		y.reviews(t, "pkg", "2.0", "d1", deepPositive()),
	)

	result := v.Verify("pkg", "2.0", "d1")
	assert.Equal(t, VerdictUnknown, result.Verdict)
	assert.Equal(t, -1, result.Distance)
}

func TestTrustedNegativeOverridesPositive(t *testing.T) {
	root := newIdentity(t)
	x := newIdentity(t)
	y := newIdentity(t)

	negative := deepPositive()
	negative.Rating = proof.AssertionNegative

	v := buildVerifier(t, []string{root.id}, trust.DefaultPolicy(),
		root.trusts(t, x, proof.TrustHigh),
		root.trusts(t, y, proof.TrustLow),
		x.reviews(t, "pkg", "1.0", "d1", deepPositive()),
		y.reviews(t, "pkg", "1.0", "d1", negative),
	)

	result := v.Verify("pkg", "1.0", "d1")
	assert.Equal(t, VerdictFlagged, result.Verdict)
}

func TestTrustedWhenReviewBelowDepthBars(t *testing.T) {
	root := newIdentity(t)
	x := newIdentity(t)

	shallow := proof.ReviewRatings{
		Thoroughness:  proof.LevelLow,
		Understanding: proof.LevelHigh,
		Rating:        proof.AssertionPositive,
	}

	policy := trust.DefaultPolicy()
	policy.MinThoroughness = proof.LevelMedium

	v := buildVerifier(t, []string{root.id}, policy,
		root.trusts(t, x, proof.TrustHigh),
		x.reviews(t, "pkg", "1.0", "d1", shallow),
	)

	assert.Equal(t, VerdictTrusted, v.Verify("pkg", "1.0", "d1").Verdict)
}

func TestUnknownWithoutReviews(t *testing.T) {
	root := newIdentity(t)
	v := buildVerifier(t, []string{root.id}, trust.DefaultPolicy())

	result := v.Verify("pkg", "1.0", "d1")
	assert.Equal(t, VerdictUnknown, result.Verdict)
	assert.Equal(t, -1, result.Distance)
	assert.Empty(t, result.Evidence)
}

func TestMostTrustedPositiveReviewerDecides(t *testing.T) {
	root := newIdentity(t)
	near := newIdentity(t)
	far := newIdentity(t)

	shallow := deepPositive()
	shallow.Thoroughness = proof.LevelLow

	policy := trust.DefaultPolicy()
	policy.MinThoroughness = proof.LevelHigh

	// the high-trust reviewer's deep review outranks the low-trust shallow one
	v := buildVerifier(t, []string{root.id}, policy,
		root.trusts(t, near, proof.TrustHigh),
		root.trusts(t, far, proof.TrustLow),
		near.reviews(t, "pkg", "1.0", "d1", deepPositive()),
		far.reviews(t, "pkg", "1.0", "d1", shallow),
	)

	result := v.Verify("pkg", "1.0", "d1")
	assert.Equal(t, VerdictVerified, result.Verdict)
	assert.Equal(t, proof.TrustHigh, result.ReviewerTrust)
}

func TestDistrustedReviewerIsIgnored(t *testing.T) {
	root := newIdentity(t)
	x := newIdentity(t)

	v := buildVerifier(t, []string{root.id}, trust.DefaultPolicy(),
		root.trusts(t, x, proof.TrustDistrust),
		x.reviews(t, "pkg", "1.0", "d1", deepPositive()),
	)

	assert.Equal(t, VerdictUnknown, v.Verify("pkg", "1.0", "d1").Verdict)
}

func TestDegradedStorePropagates(t *testing.T) {
	root := newIdentity(t)
	policy := trust.DefaultPolicy()

	s, err := store.Load(context.Background(), []repo.Repository{
		&memoryRepo{name: "mem:dead", err: repo.ErrUnreachable{Location: "mem:dead", Err: errors.New("unreachable")}},
	})
	require.NoError(t, err)

	resolver, err := trust.NewResolver(trust.NewGraph(s.TrustProofs()), []string{root.id}, policy)
	require.NoError(t, err)

	v, err := NewPackageVerifier(s, resolver, policy)
	require.NoError(t, err)

	result := v.Verify("pkg", "1.0", "d1")
	assert.Equal(t, VerdictUnknown, result.Verdict)
	assert.True(t, result.Degraded)
}

func TestVerifierRejectsInvalidPolicy(t *testing.T) {
	_, err := NewPackageVerifier(nil, nil, trust.Policy{})
	require.Error(t, err)
	assert.ErrorAs(t, err, &trust.ErrInvalidPolicy{})
}

func TestVerdictJSONRoundTrip(t *testing.T) {
	for _, verdict := range []Verdict{VerdictUnknown, VerdictTrusted, VerdictVerified, VerdictFlagged, VerdictDangerous} {
		data, err := verdict.MarshalJSON()
		require.NoError(t, err)

		parsed := Verdict(-1)
		require.NoError(t, parsed.UnmarshalJSON(data))
		assert.Equal(t, verdict, parsed)
	}
}
