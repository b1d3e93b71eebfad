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

package proof

import (
	"bytes"
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vouchsafe/go-vouch/cryptoutil"
	"github.com/vouchsafe/go-vouch/envelope"
	"gopkg.in/yaml.v3"
)

type ErrMalformedProof struct {
	Err error
}

func (e ErrMalformedProof) Error() string {
	return fmt.Sprintf("malformed proof: %v", e.Err)
}

func (e ErrMalformedProof) Unwrap() error {
	return e.Err
}

type ErrSignatureInvalid struct {
	KeyID string
	Err   error
}

func (e ErrSignatureInvalid) Error() string {
	return fmt.Sprintf("invalid signature for key id %v: %v", e.KeyID, e.Err)
}

func (e ErrSignatureInvalid) Unwrap() error {
	return e.Err
}

// Proof is a parsed, signature-verified proof document. The envelope's
// payload bytes are the canonical body; the decoded body views below are
// derived from them and never re-serialized.
type Proof struct {
	Envelope envelope.Envelope
	Kind     Kind
	Trust    *TrustBody
	Review   *ReviewBody

	// Reference is a stable identifier for where the proof was loaded from,
	// used for provenance and diagnostics. Set by the store.
	Reference string
	// ContentHash is the hex sha256 of the canonical body bytes, used with
	// the issuer ID to deduplicate proofs.
	ContentHash string
}

// Issuer returns the identity that signed the proof.
func (p Proof) Issuer() Identity {
	switch p.Kind {
	case KindTrust:
		return p.Trust.From
	case KindReview:
		return p.Review.From
	default:
		return Identity{}
	}
}

// Date returns the proof's creation timestamp.
func (p Proof) Date() time.Time {
	switch p.Kind {
	case KindTrust:
		return p.Trust.Date
	case KindReview:
		return p.Review.Date
	default:
		return time.Time{}
	}
}

// Encode serializes the proof's envelope to its wire form.
func (p Proof) Encode() ([]byte, error) {
	return json.Marshal(p.Envelope)
}

// IdentityFromSigner derives the Identity a signer controls.
func IdentityFromSigner(signer cryptoutil.Signer, url string) (Identity, error) {
	keyID, err := signer.KeyID()
	if err != nil {
		return Identity{}, err
	}

	verifier, err := signer.Verifier()
	if err != nil {
		return Identity{}, err
	}

	pub, err := verifier.Bytes()
	if err != nil {
		return Identity{}, err
	}

	return Identity{ID: keyID, PublicKey: string(pub), URL: url}, nil
}

// CreateTrust builds the canonical body for a trust proof and signs it. Empty
// Version, Date, and From fields are filled from the format version, the
// current time, and the signer.
func CreateTrust(ctx context.Context, signer cryptoutil.Signer, body TrustBody) (Proof, error) {
	if body.Trustee.ID == "" {
		return Proof{}, ErrMalformedProof{Err: fmt.Errorf("trust proof requires a trustee id")}
	}

	common, err := fillCommon(signer, body.Common)
	if err != nil {
		return Proof{}, err
	}

	body.Common = common
	return seal(ctx, signer, TrustProofType, &body)
}

// CreateReview builds the canonical body for a review proof and signs it.
func CreateReview(ctx context.Context, signer cryptoutil.Signer, body ReviewBody) (Proof, error) {
	if body.Package.Name == "" || body.Package.Version == "" || body.Package.Digest == "" {
		return Proof{}, ErrMalformedProof{Err: fmt.Errorf("review proof requires package name, version, and digest")}
	}

	common, err := fillCommon(signer, body.Common)
	if err != nil {
		return Proof{}, err
	}

	body.Common = common
	return seal(ctx, signer, ReviewProofType, &body)
}

func fillCommon(signer cryptoutil.Signer, common Common) (Common, error) {
	if common.Version == "" {
		common.Version = Version
	}

	if common.Date.IsZero() {
		common.Date = time.Now().UTC().Truncate(time.Second)
	}

	identity, err := IdentityFromSigner(signer, common.From.URL)
	if err != nil {
		return common, err
	}

	if common.From.ID != "" && common.From.ID != identity.ID {
		return common, ErrKeyIDMismatch{Expected: common.From.ID, Actual: identity.ID}
	}

	common.From = identity
	return common, nil
}

func seal(ctx context.Context, signer cryptoutil.Signer, payloadType string, body interface{}) (Proof, error) {
	payload, err := yaml.Marshal(body)
	if err != nil {
		return Proof{}, fmt.Errorf("failed to serialize proof body: %w", err)
	}

	env, err := envelope.Sign(ctx, payloadType, bytes.NewReader(payload), envelope.SignWithSigners(signer))
	if err != nil {
		return Proof{}, fmt.Errorf("failed to sign proof body: %w", err)
	}

	return fromEnvelope(ctx, env)
}

// Parse decodes a proof document from its wire form and verifies its
// signature against the issuing identity's embedded public key. Proofs that
// fail to decode or verify are unusable: no Proof is ever returned for them.
func Parse(ctx context.Context, data []byte) (Proof, error) {
	env := envelope.Envelope{}
	if err := json.Unmarshal(data, &env); err != nil {
		return Proof{}, ErrMalformedProof{Err: fmt.Errorf("failed to parse envelope: %w", err)}
	}

	return fromEnvelope(ctx, env)
}

func fromEnvelope(ctx context.Context, env envelope.Envelope) (Proof, error) {
	p := Proof{Envelope: env}
	var common Common

	switch env.PayloadType {
	case TrustProofType:
		body := &TrustBody{}
		if err := decodeBody(env.Payload, body); err != nil {
			return Proof{}, err
		}

		if body.Trustee.ID == "" {
			return Proof{}, ErrMalformedProof{Err: fmt.Errorf("trust proof has no trustee id")}
		}

		p.Kind = KindTrust
		p.Trust = body
		common = body.Common

	case ReviewProofType:
		body := &ReviewBody{}
		if err := decodeBody(env.Payload, body); err != nil {
			return Proof{}, err
		}

		if body.Package.Name == "" || body.Package.Version == "" || body.Package.Digest == "" {
			return Proof{}, ErrMalformedProof{Err: fmt.Errorf("review proof is missing package coordinates")}
		}

		p.Kind = KindReview
		p.Review = body
		common = body.Common

	default:
		return Proof{}, ErrMalformedProof{Err: fmt.Errorf("unrecognized payload type %v", env.PayloadType)}
	}

	if common.From.ID == "" {
		return Proof{}, ErrMalformedProof{Err: fmt.Errorf("proof has no issuing identity")}
	}

	if common.Date.IsZero() {
		return Proof{}, ErrMalformedProof{Err: fmt.Errorf("proof has no creation date")}
	}

	verifier, err := common.From.Verifier()
	if err != nil {
		return Proof{}, ErrSignatureInvalid{KeyID: common.From.ID, Err: err}
	}

	if _, err := env.Verify(ctx, envelope.VerifyWithVerifiers(verifier)); err != nil {
		return Proof{}, ErrSignatureInvalid{KeyID: common.From.ID, Err: err}
	}

	digest, err := cryptoutil.DigestBytes(env.Payload, crypto.SHA256)
	if err != nil {
		return Proof{}, err
	}

	p.ContentHash = cryptoutil.HexEncode(digest)
	return p, nil
}

// decodeBody decodes canonical body bytes. Unknown fields are ignored by
// computation but remain present in the payload, which stays authoritative.
func decodeBody(payload []byte, body interface{}) error {
	if err := yaml.Unmarshal(payload, body); err != nil {
		return ErrMalformedProof{Err: fmt.Errorf("failed to parse proof body: %w", err)}
	}

	return nil
}
