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

// Package envelope implements the signed envelope that wraps every proof
// document. The envelope carries the canonical payload bytes untouched, so
// signing and verification are reproducible byte for byte.
package envelope

import (
	"context"
	"fmt"
	"io"

	"github.com/vouchsafe/go-vouch/cryptoutil"
	"github.com/vouchsafe/go-vouch/log"
)

type ErrNoSignatures struct{}

func (e ErrNoSignatures) Error() string {
	return "no signatures in envelope"
}

type ErrNoMatchingSigs struct {
	Checked []CheckedVerifier
}

func (e ErrNoMatchingSigs) Error() string {
	mess := "no valid signatures for the provided verifiers found for keyids:\n"
	for _, v := range e.Checked {
		if v.Error != nil {
			kid, err := v.Verifier.KeyID()
			if err != nil {
				log.Warnf("failed to get key id from verifier: %v", err)
			}

			mess += fmt.Sprintf("  %s: %v\n", kid, v.Error)
		}
	}

	return mess
}

type ErrThresholdNotMet struct {
	Threshold int
	Actual    int
}

func (e ErrThresholdNotMet) Error() string {
	return fmt.Sprintf("envelope did not meet verifier threshold. expected %v valid verifiers but got %v", e.Threshold, e.Actual)
}

type ErrInvalidThreshold int

func (e ErrInvalidThreshold) Error() string {
	return fmt.Sprintf("invalid threshold (%v). thresholds must be greater than 0", int(e))
}

// Envelope is a DSSE style signed wrapper around canonical payload bytes.
type Envelope struct {
	Payload     []byte      `json:"payload" jsonschema:"title=Payload,description=Canonical proof body bytes"`
	PayloadType string      `json:"payloadType" jsonschema:"title=Payload Type,description=Media type describing the payload format"`
	Signatures  []Signature `json:"signatures" jsonschema:"title=Signatures,description=List of signatures over the payload"`
}

type Signature struct {
	KeyID     string `json:"keyid" jsonschema:"title=Key ID,description=Identifier of the key used to create this signature"`
	Signature []byte `json:"sig" jsonschema:"title=Signature,description=Base64-encoded signature value"`
	PublicKey []byte `json:"publickey,omitempty" jsonschema:"title=Public Key,description=PEM-encoded public key of the signer"`
}

// preauthEncode wraps the data to be signed or verified and its type in the
// DSSE protocol's pre-authentication encoding as detailed at
// https://github.com/secure-systems-lab/dsse/blob/master/protocol.md
// PAE(type, body) = "DSSEv1" + SP + LEN(type) + SP + type + SP + LEN(body) + SP + body
func preauthEncode(bodyType string, body []byte) []byte {
	const dsseVersion = "DSSEv1"
	return []byte(fmt.Sprintf("%s %d %s %d %s", dsseVersion, len(bodyType), bodyType, len(body), body))
}

type SignOption func(*signOptions)

type signOptions struct {
	signers []cryptoutil.Signer
}

func SignWithSigners(signers ...cryptoutil.Signer) SignOption {
	return func(so *signOptions) {
		so.signers = append(so.signers, signers...)
	}
}

// Sign reads the payload from r and signs it with every configured signer.
// Each signature embeds the signer's public key so envelopes stay
// self-contained.
func Sign(ctx context.Context, bodyType string, r io.Reader, opts ...SignOption) (Envelope, error) {
	so := &signOptions{}
	env := Envelope{}
	for _, opt := range opts {
		opt(so)
	}

	if len(so.signers) == 0 {
		return env, fmt.Errorf("must have at least one signer, have %v", len(so.signers))
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return env, err
	}

	env.PayloadType = bodyType
	env.Payload = payload
	env.Signatures = make([]Signature, 0)
	pae := preauthEncode(bodyType, payload)
	for _, signer := range so.signers {
		sig, err := signer.Sign(ctx, pae)
		if err != nil {
			return env, err
		}

		keyID, err := signer.KeyID()
		if err != nil {
			return env, err
		}

		envSig := Signature{
			KeyID:     keyID,
			Signature: sig,
		}

		verifier, err := signer.Verifier()
		if err != nil {
			return env, err
		}

		if pub, err := verifier.Bytes(); err == nil {
			envSig.PublicKey = pub
		}

		env.Signatures = append(env.Signatures, envSig)
	}

	return env, nil
}

type VerificationOption func(*verificationOptions)

type verificationOptions struct {
	verifiers []cryptoutil.Verifier
	threshold int
}

func VerifyWithVerifiers(verifiers ...cryptoutil.Verifier) VerificationOption {
	return func(vo *verificationOptions) {
		vo.verifiers = append(vo.verifiers, verifiers...)
	}
}

func VerifyWithThreshold(threshold int) VerificationOption {
	return func(vo *verificationOptions) {
		vo.threshold = threshold
	}
}

// CheckedVerifier records the outcome of checking the envelope's signatures
// against a single verifier.
type CheckedVerifier struct {
	Verifier cryptoutil.Verifier
	Error    error
}

// Verify checks the envelope's signatures against the provided verifiers and
// returns every checked verifier along with its result. An error is returned
// if fewer than threshold verifiers found a valid signature.
func (e Envelope) Verify(ctx context.Context, opts ...VerificationOption) ([]CheckedVerifier, error) {
	vo := &verificationOptions{
		threshold: 1,
	}

	for _, opt := range opts {
		opt(vo)
	}

	if vo.threshold <= 0 {
		return nil, ErrInvalidThreshold(vo.threshold)
	}

	if len(e.Signatures) == 0 {
		return nil, ErrNoSignatures{}
	}

	checked := make([]CheckedVerifier, 0, len(vo.verifiers))
	passed := 0
	pae := preauthEncode(e.PayloadType, e.Payload)
	for _, verifier := range vo.verifiers {
		err := e.verifyWith(ctx, pae, verifier)
		checked = append(checked, CheckedVerifier{Verifier: verifier, Error: err})
		if err == nil {
			passed++
		}
	}

	if passed == 0 {
		return checked, ErrNoMatchingSigs{Checked: checked}
	}

	if passed < vo.threshold {
		return checked, ErrThresholdNotMet{Threshold: vo.threshold, Actual: passed}
	}

	return checked, nil
}

func (e Envelope) verifyWith(ctx context.Context, pae []byte, verifier cryptoutil.Verifier) error {
	keyID, err := verifier.KeyID()
	if err != nil {
		return fmt.Errorf("failed to get key id from verifier: %w", err)
	}

	matched := false
	for _, sig := range e.Signatures {
		// key ids are advisory; still attempt verification when they differ
		// only if no signature claims this key.
		if sig.KeyID == keyID {
			matched = true
			if err := verifier.Verify(ctx, pae, sig.Signature); err == nil {
				return nil
			}
		}
	}

	if !matched {
		for _, sig := range e.Signatures {
			if err := verifier.Verify(ctx, pae, sig.Signature); err == nil {
				return nil
			}
		}
	}

	return cryptoutil.ErrVerifyFailed{}
}
