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

// Package vouch is the high-level entry point: creating signed proofs,
// verifying proof documents, and scanning dependency lists against a web of
// trust.
package vouch

import (
	"context"
	"io"

	"github.com/vouchsafe/go-vouch/cryptoutil"
	"github.com/vouchsafe/go-vouch/proof"
	"github.com/vouchsafe/go-vouch/repo"
)

// SignTrust creates a signed trust proof vouching for another identity and
// writes it in wire form.
func SignTrust(ctx context.Context, signer cryptoutil.Signer, body proof.TrustBody, w io.Writer) (proof.Proof, error) {
	p, err := proof.CreateTrust(ctx, signer, body)
	if err != nil {
		return proof.Proof{}, err
	}

	return p, writeProof(p, w)
}

// SignReview creates a signed review proof vouching for (or warning about)
// the content of one package version and writes it in wire form.
func SignReview(ctx context.Context, signer cryptoutil.Signer, body proof.ReviewBody, w io.Writer) (proof.Proof, error) {
	p, err := proof.CreateReview(ctx, signer, body)
	if err != nil {
		return proof.Proof{}, err
	}

	return p, writeProof(p, w)
}

func writeProof(p proof.Proof, w io.Writer) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

// Publish stores a signed proof in a local filesystem proof repository,
// grouped under the issuing identity. Returns the stored document's
// reference.
func Publish(p proof.Proof, r *repo.FS) (string, error) {
	data, err := p.Encode()
	if err != nil {
		return "", err
	}

	return r.Write(p.Issuer().ID, data)
}
