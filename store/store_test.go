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

package store

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

func testSigner(t *testing.T) cryptoutil.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return cryptoutil.NewED25519Signer(priv)
}

func encodeProof(t *testing.T, p proof.Proof) []byte {
	t.Helper()
	data, err := p.Encode()
	require.NoError(t, err)
	return data
}

func TestLoadIndexesProofs(t *testing.T) {
	ctx := context.Background()
	alice := testSigner(t)
	bob := testSigner(t)
	bobIdentity, err := proof.IdentityFromSigner(bob, "")
	require.NoError(t, err)

	trustProof, err := proof.CreateTrust(ctx, alice, proof.TrustBody{
		Trustee: bobIdentity,
		Trust:   proof.TrustHigh,
	})
	require.NoError(t, err)

	reviewProof, err := proof.CreateReview(ctx, bob, proof.ReviewBody{
		Package: proof.PackageRef{Name: "leftpad", Version: "1.0.3", Digest: "abc123"},
		Review:  proof.ReviewRatings{Rating: proof.AssertionPositive},
	})
	require.NoError(t, err)

	repository := &memoryRepo{
		name: "mem:test",
		docs: []repo.Document{
			{Reference: "mem:test/trust.proof.json", Bytes: encodeProof(t, trustProof)},
			{Reference: "mem:test/review.proof.json", Bytes: encodeProof(t, reviewProof)},
		},
	}

	s, err := Load(ctx, []repo.Repository{repository})
	require.NoError(t, err)
	assert.False(t, s.Degraded())
	assert.Empty(t, s.Diagnostics())

	require.Len(t, s.TrustProofs(), 1)
	assert.Equal(t, "mem:test/trust.proof.json", s.TrustProofs()[0].Reference)

	reviews := s.ReviewsFor("leftpad", "1.0.3")
	require.Len(t, reviews, 1)
	assert.Equal(t, proof.AssertionPositive, reviews[0].Review.Review.Rating)
	assert.Empty(t, s.ReviewsFor("leftpad", "9.9.9"))

	aliceKeyID, err := alice.KeyID()
	require.NoError(t, err)
	assert.Len(t, s.ProofsByIssuer(aliceKeyID), 1)
}

func TestLoadDiscardsBadProofs(t *testing.T) {
	ctx := context.Background()
	good, err := proof.CreateReview(ctx, testSigner(t), proof.ReviewBody{
		Package: proof.PackageRef{Name: "leftpad", Version: "1.0.3", Digest: "abc123"},
		Review:  proof.ReviewRatings{Rating: proof.AssertionPositive},
	})
	require.NoError(t, err)

	tampered := good
	tampered.Envelope.Payload = append([]byte{}, good.Envelope.Payload...)
	tampered.Envelope.Payload = append(tampered.Envelope.Payload, []byte("tamper: true\n")...)

	repository := &memoryRepo{
		name: "mem:test",
		docs: []repo.Document{
			{Reference: "mem:test/garbage", Bytes: []byte("not json")},
			{Reference: "mem:test/tampered", Bytes: encodeProof(t, tampered)},
			{Reference: "mem:test/good", Bytes: encodeProof(t, good)},
		},
	}

	s, err := Load(ctx, []repo.Repository{repository})
	require.NoError(t, err)
	assert.False(t, s.Degraded())
	assert.Len(t, s.ReviewsFor("leftpad", "1.0.3"), 1)

	diags := s.Diagnostics()
	require.Len(t, diags, 2)
	refs := []string{diags[0].Reference, diags[1].Reference}
	assert.Contains(t, refs, "mem:test/garbage")
	assert.Contains(t, refs, "mem:test/tampered")
}

func TestLoadDeduplicatesProofs(t *testing.T) {
	ctx := context.Background()
	p, err := proof.CreateReview(ctx, testSigner(t), proof.ReviewBody{
		Package: proof.PackageRef{Name: "leftpad", Version: "1.0.3", Digest: "abc123"},
		Review:  proof.ReviewRatings{Rating: proof.AssertionPositive},
	})
	require.NoError(t, err)

	data := encodeProof(t, p)
	repos := []repo.Repository{
		&memoryRepo{name: "mem:a", docs: []repo.Document{{Reference: "mem:a/p", Bytes: data}}},
		&memoryRepo{name: "mem:b", docs: []repo.Document{{Reference: "mem:b/p", Bytes: data}}},
	}

	s, err := Load(ctx, repos)
	require.NoError(t, err)
	assert.Len(t, s.ReviewsFor("leftpad", "1.0.3"), 1)
}

func TestLoadUnreachableRepositoryDegrades(t *testing.T) {
	ctx := context.Background()
	good, err := proof.CreateReview(ctx, testSigner(t), proof.ReviewBody{
		Package: proof.PackageRef{Name: "leftpad", Version: "1.0.3", Digest: "abc123"},
		Review:  proof.ReviewRatings{Rating: proof.AssertionPositive},
	})
	require.NoError(t, err)

	repos := []repo.Repository{
		&memoryRepo{name: "mem:dead", err: repo.ErrUnreachable{Location: "mem:dead", Err: errors.New("connection refused")}},
		&memoryRepo{name: "mem:alive", docs: []repo.Document{{Reference: "mem:alive/p", Bytes: encodeProof(t, good)}}},
	}

	s, err := Load(ctx, repos)
	require.NoError(t, err)
	assert.True(t, s.Degraded())
	assert.Len(t, s.ReviewsFor("leftpad", "1.0.3"), 1)

	diags := s.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "mem:dead", diags[0].Reference)
}

func TestLoadDeterministicOrder(t *testing.T) {
	ctx := context.Background()
	docs := []repo.Document{}
	for i := 0; i < 5; i++ {
		p, err := proof.CreateReview(ctx, testSigner(t), proof.ReviewBody{
			Package: proof.PackageRef{Name: "leftpad", Version: "1.0.3", Digest: "abc123"},
			Review:  proof.ReviewRatings{Rating: proof.AssertionPositive},
		})
		require.NoError(t, err)
		docs = append(docs, repo.Document{
			Reference: fmt.Sprintf("mem:test/%d", i),
			Bytes:     encodeProof(t, p),
		})
	}

	forward, err := Load(ctx, []repo.Repository{&memoryRepo{name: "mem:test", docs: docs}})
	require.NoError(t, err)

	reversed := make([]repo.Document, len(docs))
	for i, doc := range docs {
		reversed[len(docs)-1-i] = doc
	}

	backward, err := Load(ctx, []repo.Repository{&memoryRepo{name: "mem:test", docs: reversed}})
	require.NoError(t, err)

	forwardRefs := []string{}
	for _, p := range forward.ReviewsFor("leftpad", "1.0.3") {
		forwardRefs = append(forwardRefs, p.Reference)
	}

	backwardRefs := []string{}
	for _, p := range backward.ReviewsFor("leftpad", "1.0.3") {
		backwardRefs = append(backwardRefs, p.Reference)
	}

	assert.Equal(t, forwardRefs, backwardRefs)
}
