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
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
)

type ErrUnsupportedPEM struct {
	t string
}

func (e ErrUnsupportedPEM) Error() string {
	return fmt.Sprintf("unsupported pem type: %v", e.t)
}

type ErrInvalidPemBlock struct{}

func (e ErrInvalidPemBlock) Error() string {
	return "invalid pem block"
}

// DigestBytes hashes data with the provided hash function.
func DigestBytes(data []byte, hash crypto.Hash) ([]byte, error) {
	return Digest(func(h io.Writer) error {
		_, err := h.Write(data)
		return err
	}, hash)
}

func Digest(write func(io.Writer) error, hash crypto.Hash) ([]byte, error) {
	if !hash.Available() {
		return nil, fmt.Errorf("hash function %v not available", hash)
	}

	h := hash.New()
	if err := write(h); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// HexEncode returns the lowercase hex string of digest.
func HexEncode(digest []byte) string {
	return hex.EncodeToString(digest)
}

// GeneratePublicKeyID creates a stable identifier for a public key: the hex
// encoded hash of the key's PEM encoded PKIX form. The same key always
// produces the same ID, so it doubles as the identity ID on proofs.
func GeneratePublicKeyID(pub interface{}, hash crypto.Hash) (string, error) {
	pemBytes, err := PublicPemBytes(pub)
	if err != nil {
		return "", err
	}

	digest, err := DigestBytes(pemBytes, hash)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(digest), nil
}

// PublicPemBytes PEM encodes a public key in PKIX form.
func PublicPemBytes(pub interface{}) ([]byte, error) {
	keyBytes, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: keyBytes})
	return pemBytes, err
}

// PrivatePemBytes PEM encodes a private key in PKCS8 form.
func PrivatePemBytes(priv interface{}) ([]byte, error) {
	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})
	return pemBytes, err
}

// TryParseKeyFromReader attempts to parse the contents of the reader as a
// private key, a public key, or a certificate's public key, in that order.
func TryParseKeyFromReader(r io.Reader) (interface{}, error) {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return TryParseKey(bytes)
}

func TryParseKey(data []byte) (interface{}, error) {
	possibleKey, err := TryParsePrivateKey(data)
	if err == nil {
		return possibleKey, nil
	}

	possibleKey, err = TryParsePublicKey(data)
	if err == nil {
		return possibleKey, nil
	}

	cert, err := TryParseCertificate(data)
	if err == nil {
		return cert.PublicKey, nil
	}

	return nil, fmt.Errorf("data doesn't seem to be a key or certificate")
}

// TryParsePrivateKey tries each of the PEM encoded private key formats.
func TryParsePrivateKey(data []byte) (interface{}, error) {
	pemBlock, _ := pem.Decode(data)
	if pemBlock == nil {
		return nil, ErrInvalidPemBlock{}
	}

	key, err := x509.ParsePKCS8PrivateKey(pemBlock.Bytes)
	if err == nil {
		return key, nil
	}

	key, err = x509.ParsePKCS1PrivateKey(pemBlock.Bytes)
	if err == nil {
		return key, nil
	}

	key, err = x509.ParseECPrivateKey(pemBlock.Bytes)
	if err == nil {
		return key, nil
	}

	return nil, fmt.Errorf("could not parse data as a private key")
}

// TryParsePublicKey parses a PEM encoded PKIX or PKCS1 public key.
func TryParsePublicKey(data []byte) (interface{}, error) {
	pemBlock, _ := pem.Decode(data)
	if pemBlock == nil {
		return nil, ErrInvalidPemBlock{}
	}

	key, err := x509.ParsePKIXPublicKey(pemBlock.Bytes)
	if err == nil {
		return key, nil
	}

	rsaKey, err := x509.ParsePKCS1PublicKey(pemBlock.Bytes)
	if err == nil {
		return rsaKey, nil
	}

	return nil, fmt.Errorf("could not parse data as a public key")
}

// TryParseCertificate parses a PEM encoded x509 certificate.
func TryParseCertificate(data []byte) (*x509.Certificate, error) {
	pemBlock, _ := pem.Decode(data)
	if pemBlock == nil {
		return nil, ErrInvalidPemBlock{}
	}

	if pemBlock.Type != "CERTIFICATE" {
		return nil, ErrUnsupportedPEM{pemBlock.Type}
	}

	return x509.ParseCertificate(pemBlock.Bytes)
}
