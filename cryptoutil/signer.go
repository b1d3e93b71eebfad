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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
)

type ErrUnsupportedKeyType struct {
	t string
}

func (e ErrUnsupportedKeyType) Error() string {
	return fmt.Sprintf("unsupported signer key type: %v", e.t)
}

type KeyIdentifier interface {
	KeyID() (string, error)
}

// Signer signs raw bytes. Implementations hash the data as appropriate for
// their algorithm; callers always pass the full message.
type Signer interface {
	KeyIdentifier
	Sign(ctx context.Context, data []byte) ([]byte, error)
	Verifier() (Verifier, error)
}

// Verifier checks a signature over raw bytes against a single public key.
type Verifier interface {
	KeyIdentifier
	Verify(ctx context.Context, data []byte, sig []byte) error
	Public() crypto.PublicKey
	Bytes() ([]byte, error)
}

type SignerOption func(*signerOptions)

type signerOptions struct {
	hash crypto.Hash
}

func SignWithHash(h crypto.Hash) SignerOption {
	return func(so *signerOptions) {
		so.hash = h
	}
}

// NewSigner creates a Signer for any supported private key type. Identity
// keys are ed25519; RSA and ECDSA are accepted so that envelopes produced by
// other toolchains can still be created and verified.
func NewSigner(priv interface{}, opts ...SignerOption) (Signer, error) {
	options := &signerOptions{
		hash: crypto.SHA256,
	}

	for _, opt := range opts {
		opt(options)
	}

	switch key := priv.(type) {
	case *rsa.PrivateKey:
		return NewRSASigner(key, options.hash), nil
	case *ecdsa.PrivateKey:
		return NewECDSASigner(key, options.hash), nil
	case ed25519.PrivateKey:
		return NewED25519Signer(key), nil
	default:
		return nil, ErrUnsupportedKeyType{
			t: fmt.Sprintf("%T", priv),
		}
	}
}

// NewVerifier creates a Verifier for any supported public key type.
func NewVerifier(pub interface{}, opts ...SignerOption) (Verifier, error) {
	options := &signerOptions{
		hash: crypto.SHA256,
	}

	for _, opt := range opts {
		opt(options)
	}

	switch key := pub.(type) {
	case *rsa.PublicKey:
		return NewRSAVerifier(key, options.hash), nil
	case *ecdsa.PublicKey:
		return NewECDSAVerifier(key, options.hash), nil
	case ed25519.PublicKey:
		return NewED25519Verifier(key), nil
	default:
		return nil, ErrUnsupportedKeyType{
			t: fmt.Sprintf("%T", pub),
		}
	}
}

func NewSignerFromReader(r io.Reader, opts ...SignerOption) (Signer, error) {
	key, err := TryParseKeyFromReader(r)
	if err != nil {
		return nil, err
	}

	return NewSigner(key, opts...)
}

func NewVerifierFromReader(r io.Reader, opts ...SignerOption) (Verifier, error) {
	key, err := TryParseKeyFromReader(r)
	if err != nil {
		return nil, err
	}

	return NewVerifier(key, opts...)
}

// GenerateKeyPair creates a fresh ed25519 identity key pair and returns a
// Signer for it along with the PEM encodings of both halves.
func GenerateKeyPair() (Signer, []byte, []byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	privPem, err := PrivatePemBytes(priv)
	if err != nil {
		return nil, nil, nil, err
	}

	pubPem, err := PublicPemBytes(pub)
	if err != nil {
		return nil, nil, nil, err
	}

	return NewED25519Signer(priv), privPem, pubPem, nil
}
