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

// Package store loads proof documents from proof repositories, verifies
// them, and indexes them for the trust graph and the package verifier. A
// loaded store is immutable and safe to share across workers.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/vouchsafe/go-vouch/log"
	"github.com/vouchsafe/go-vouch/proof"
	"github.com/vouchsafe/go-vouch/repo"
	"golang.org/x/exp/slices"
)

// Store indexes verified proofs by issuer and by package coordinate. Proofs
// that fail to parse or verify never enter the store; they are recorded as
// diagnostics and otherwise ignored.
type Store struct {
	proofsByIssuer      map[string][]proof.Proof
	reviewsByCoordinate map[string][]proof.Proof
	trustProofs         []proof.Proof
	diags               *Collector
	degraded            bool
}

// Load reads every document from the given repositories. Per-document and
/// per-repository failures are isolated: a bad proof is skipped, an
// unreachable repository marks the store degraded, and loading continues
// with whatever could be read.
func Load(ctx context.Context, repositories []repo.Repository) (*Store, error) {
	s := &Store{
		proofsByIssuer:      make(map[string][]proof.Proof),
		reviewsByCoordinate: make(map[string][]proof.Proof),
		diags:               &Collector{},
	}

	seen := make(map[string]struct{})
	for _, repository := range repositories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docs, err := repository.Documents(ctx)
		if err != nil {
			log.Warnf("proof repository %v unavailable: %v", repository.Name(), err)
			s.diags.Add(repository.Name(), err)
			s.degraded = true
			continue
		}

		for _, doc := range docs {
			p, err := proof.Parse(ctx, doc.Bytes)
			if err != nil {
				log.Debugf("discarding proof %v: %v", doc.Reference, err)
				s.diags.Add(doc.Reference, err)
				continue
			}

			p.Reference = doc.Reference
			dedupeKey := p.Issuer().ID + "\x00" + p.ContentHash
			if _, ok := seen[dedupeKey]; ok {
				continue
			}

			seen[dedupeKey] = struct{}{}
			s.index(p)
		}
	}

	s.finalize()
	return s, nil
}

func (s *Store) index(p proof.Proof) {
	issuer := p.Issuer().ID
	s.proofsByIssuer[issuer] = append(s.proofsByIssuer[issuer], p)

	switch p.Kind {
	case proof.KindTrust:
		s.trustProofs = append(s.trustProofs, p)
	case proof.KindReview:
		coord := coordinateKey(p.Review.Package.Name, p.Review.Package.Version)
		s.reviewsByCoordinate[coord] = append(s.reviewsByCoordinate[coord], p)
	}
}

// finalize orders every index deterministically so verdicts never depend on
// proof arrival order.
func (s *Store) finalize() {
	byRecency := func(a, b proof.Proof) int {
		if c := b.Date().Compare(a.Date()); c != 0 {
			return c
		}

		return strings.Compare(a.Reference, b.Reference)
	}

	slices.SortFunc(s.trustProofs, byRecency)
	for _, proofs := range s.proofsByIssuer {
		slices.SortFunc(proofs, byRecency)
	}

	for _, reviews := range s.reviewsByCoordinate {
		slices.SortFunc(reviews, byRecency)
	}
}

func coordinateKey(name, version string) string {
	return fmt.Sprintf("%s@%s", name, version)
}

// ReviewsFor returns all verified review proofs for one package coordinate.
func (s *Store) ReviewsFor(name, version string) []proof.Proof {
	return s.reviewsByCoordinate[coordinateKey(name, version)]
}

// TrustProofs returns all verified trust proofs; the identity graph is built
// from them.
func (s *Store) TrustProofs() []proof.Proof {
	return s.trustProofs
}

// ProofsByIssuer returns every verified proof authored by the identity.
func (s *Store) ProofsByIssuer(id string) []proof.Proof {
	return s.proofsByIssuer[id]
}

// Diagnostics returns the discarded-proof and unreachable-repository records
// accumulated during Load.
func (s *Store) Diagnostics() []Diagnostic {
	return s.diags.All()
}

// Degraded reports whether any repository could not be read, meaning the
// proof set may be incomplete.
func (s *Store) Degraded() bool {
	return s.degraded
}
