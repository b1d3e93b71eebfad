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

package cryptoutil

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"fmt"
)

type ErrVerifyFailed struct{}

func (e ErrVerifyFailed) Error() string {
	return "verification failed"
}

type ED25519Signer struct {
	priv ed25519.PrivateKey
}

func NewED25519Signer(priv ed25519.PrivateKey) *ED25519Signer {
	return &ED25519Signer{priv}
}

func (s *ED25519Signer) KeyID() (string, error) {
	return GeneratePublicKeyID(s.priv.Public(), crypto.SHA256)
}

// Sign signs the message directly. ed25519 hashes internally, so unlike the
// other signers no prehash is applied.
func (s *ED25519Signer) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, data), nil
}

func (s *ED25519Signer) Verifier() (Verifier, error) {
	pub, ok := s.priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("could not get ed25519 public key from private key")
	}

	return NewED25519Verifier(pub), nil
}

type ED25519Verifier struct {
	pub ed25519.PublicKey
}

func NewED25519Verifier(pub ed25519.PublicKey) *ED25519Verifier {
	return &ED25519Verifier{pub}
}

func (v *ED25519Verifier) KeyID() (string, error) {
	return GeneratePublicKeyID(v.pub, crypto.SHA256)
}

func (v *ED25519Verifier) Verify(ctx context.Context, data []byte, sig []byte) error {
	verified := ed25519.Verify(v.pub, data, sig)
	if !verified {
		return ErrVerifyFailed{}
	}

	return nil
}

func (v *ED25519Verifier) Public() crypto.PublicKey {
	return v.pub
}

func (v *ED25519Verifier) Bytes() ([]byte, error) {
	return PublicPemBytes(v.pub)
}
