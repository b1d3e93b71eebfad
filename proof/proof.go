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

// Package proof defines the proof document model: signed statements in which
// one identity either vouches for another identity (trust proof) or for the
// exact content of a package version it reviewed (review proof).
package proof

import (
	"bytes"
	"fmt"
	"time"

	"github.com/vouchsafe/go-vouch/cryptoutil"
)

// Version is the proof format version written into every new proof body.
const Version = "0.1"

const (
	TrustProofType  = "https://vouchsafe.dev/proof/trust/v0.1"
	ReviewProofType = "https://vouchsafe.dev/proof/review/v0.1"
)

// Identity is a public key holder participating in the trust network. ID is
// the key ID of the identity's public key, so an identity can never claim a
// key it does not hold. URL points at the proof repository the identity
// publishes to.
type Identity struct {
	ID        string `yaml:"id" json:"id" jsonschema:"title=ID,description=Key ID of the identity's public key"`
	PublicKey string `yaml:"publickey,omitempty" json:"publickey,omitempty" jsonschema:"title=Public Key,description=PEM-encoded public key"`
	URL       string `yaml:"url,omitempty" json:"url,omitempty" jsonschema:"title=URL,description=Proof repository the identity publishes to"`
}

// Verifier builds a signature verifier from the identity's embedded public
// key and checks the key actually belongs to the claimed ID.
func (i Identity) Verifier() (cryptoutil.Verifier, error) {
	if i.PublicKey == "" {
		return nil, fmt.Errorf("identity %v has no embedded public key", i.ID)
	}

	verifier, err := cryptoutil.NewVerifierFromReader(bytes.NewReader([]byte(i.PublicKey)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity public key: %w", err)
	}

	keyID, err := verifier.KeyID()
	if err != nil {
		return nil, err
	}

	if keyID != i.ID {
		return nil, ErrKeyIDMismatch{Expected: i.ID, Actual: keyID}
	}

	return verifier, nil
}

type ErrKeyIDMismatch struct {
	Expected string
	Actual   string
}

func (e ErrKeyIDMismatch) Error() string {
	return fmt.Sprintf("public key does not belong to claimed identity: expected key id %v but key hashes to %v", e.Expected, e.Actual)
}

// Common holds the fields every proof body shares. Field order is the
// canonical serialization order.
type Common struct {
	Version string    `yaml:"version" json:"version" jsonschema:"title=Version,description=Proof format version"`
	Date    time.Time `yaml:"date" json:"date" jsonschema:"title=Date,description=Proof creation timestamp"`
	From    Identity  `yaml:"from" json:"from" jsonschema:"title=From,description=Issuing identity"`
}

// TrustBody asserts how much the issuer trusts another identity's reviews.
type TrustBody struct {
	Common  `yaml:",inline"`
	Trustee Identity   `yaml:"trustee" json:"trustee" jsonschema:"title=Trustee,description=The identity being vouched for"`
	Trust   TrustLevel `yaml:"trust" json:"trust" jsonschema:"title=Trust,description=Trust level granted to the trustee,enum=distrust,enum=none,enum=low,enum=medium,enum=high"`
	Comment string     `yaml:"comment,omitempty" json:"comment,omitempty" jsonschema:"title=Comment"`
}

// PackageRef pins a review to an exact package source tree.
type PackageRef struct {
	Name    string `yaml:"name" json:"name" jsonschema:"title=Name"`
	Version string `yaml:"version" json:"version" jsonschema:"title=Version"`
	Digest  string `yaml:"digest" json:"digest" jsonschema:"title=Digest,description=Content digest of the package source tree at review time"`
}

func (p PackageRef) Coordinate() string {
	return fmt.Sprintf("%s@%s", p.Name, p.Version)
}

// ReviewRatings are the reviewer's self-reported ratings for one review.
type ReviewRatings struct {
	Thoroughness  Level     `yaml:"thoroughness" json:"thoroughness" jsonschema:"enum=low,enum=medium,enum=high"`
	Understanding Level     `yaml:"understanding" json:"understanding" jsonschema:"enum=low,enum=medium,enum=high"`
	Rating        Assertion `yaml:"rating" json:"rating" jsonschema:"enum=negative,enum=neutral,enum=positive"`
}

// FileDigest records the digest of a single reviewed file.
type FileDigest struct {
	Path   string `yaml:"path" json:"path"`
	Digest string `yaml:"digest" json:"digest"`
}

// ReviewBody vouches (or warns) about the content of one package version.
type ReviewBody struct {
	Common  `yaml:",inline"`
	Package PackageRef    `yaml:"package" json:"package" jsonschema:"title=Package"`
	Review  ReviewRatings `yaml:"review" json:"review" jsonschema:"title=Review"`
	Comment string        `yaml:"comment,omitempty" json:"comment,omitempty" jsonschema:"title=Comment"`
	Files   []FileDigest  `yaml:"files,omitempty" json:"files,omitempty" jsonschema:"title=Files,description=Digests of individual reviewed files"`
}

// Kind discriminates the closed set of proof body variants.
type Kind int

const (
	KindTrust Kind = iota
	KindReview
)

func (k Kind) String() string {
	switch k {
	case KindTrust:
		return "trust"
	case KindReview:
		return "review"
	default:
		return fmt.Sprintf("unknown kind (%d)", int(k))
	}
}
