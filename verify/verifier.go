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

// Package verify turns the proof store and the resolved trust graph into
// per-package verdicts.
package verify

import (
	"encoding/json"
	"fmt"

	"github.com/vouchsafe/go-vouch/proof"
	"github.com/vouchsafe/go-vouch/store"
	"github.com/vouchsafe/go-vouch/trust"
)

// Verdict is the outcome of verifying one package version against the proof
// set and the local trust policy.
type Verdict int

const (
	// VerdictUnknown means no counted review covers the package content.
	VerdictUnknown Verdict = iota
	// VerdictTrusted means a sufficiently trusted reviewer vouched for the
	// content, but below the configured review depth bars.
	VerdictTrusted
	// VerdictVerified means a sufficiently trusted reviewer vouched for the
	// content and met the review depth bars.
	VerdictVerified
	// VerdictFlagged means a sufficiently trusted reviewer warned against
	// this exact content. Negative reviews are never outvoted.
	VerdictFlagged
	// VerdictDangerous means the content differs from what a sufficiently
	// trusted reviewer vouched for: it changed since it was reviewed.
	VerdictDangerous
)

var verdictNames = map[Verdict]string{
	VerdictUnknown:   "unknown",
	VerdictTrusted:   "trusted",
	VerdictVerified:  "verified",
	VerdictFlagged:   "flagged",
	VerdictDangerous: "dangerous",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}

	return fmt.Sprintf("unknown verdict (%d)", int(v))
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	for verdict, n := range verdictNames {
		if n == name {
			*v = verdict
			return nil
		}
	}

	return fmt.Errorf("invalid verdict %v", name)
}

// Result is the verdict for one package version plus the provenance that
// produced it.
type Result struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Digest  string  `json:"digest,omitempty"`
	Verdict Verdict `json:"verdict"`

	// ReviewerTrust and Distance describe the reviewer whose proof decided
	// the verdict. Distance is -1 when no review decided it.
	ReviewerTrust proof.TrustLevel `json:"reviewerTrust"`
	Distance      int              `json:"distance"`

	// Evidence lists the proof references behind the verdict: the trust
	// chain to the deciding reviewer followed by their review.
	Evidence []string `json:"evidence,omitempty"`

	// Degraded reports that some proof repository could not be read, so the
	// verdict may rest on an incomplete proof set.
	Degraded bool `json:"degraded,omitempty"`
}

// PackageVerifier computes verdicts from an immutable store and resolver
// snapshot. It holds no mutable state, so one verifier is shared across all
// scan workers.
type PackageVerifier struct {
	store    *store.Store
	resolver *trust.Resolver
	policy   trust.Policy
}

func NewPackageVerifier(s *store.Store, resolver *trust.Resolver, policy trust.Policy) (*PackageVerifier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &PackageVerifier{store: s, resolver: resolver, policy: policy}, nil
}

type candidate struct {
	proof proof.Proof
	trust trust.Resolution
}

// Verify resolves the verdict for one package version at the given content
// digest. The verdict is a pure function of the proof set, the policy, and
// the digest; proof arrival order never matters.
//
// Precedence, strongest claim first: a counted negative review on this
// digest flags the package; a counted positive review on a different digest
// marks it dangerous, because the content changed since it was vouched for;
// a counted positive review on this digest yields verified when it meets the
// thoroughness and understanding bars, trusted otherwise; with no counted
// reviews the package is unknown.
func (v *PackageVerifier) Verify(name, version, digest string) Result {
	result := Result{
		Name:          name,
		Version:       version,
		Digest:        digest,
		Verdict:       VerdictUnknown,
		ReviewerTrust: proof.TrustNone,
		Distance:      -1,
		Degraded:      v.store.Degraded(),
	}

	matching, stale := v.countedReviews(name, version, digest)

	for _, c := range matching {
		if c.proof.Review.Review.Rating == proof.AssertionNegative {
			return v.decide(result, VerdictFlagged, c)
		}
	}

	for _, c := range stale {
		if c.proof.Review.Review.Rating == proof.AssertionPositive {
			return v.decide(result, VerdictDangerous, c)
		}
	}

	if best := bestPositive(matching); best != nil {
		if v.meetsDepthBars(best.proof.Review.Review) {
			return v.decide(result, VerdictVerified, *best)
		}

		return v.decide(result, VerdictTrusted, *best)
	}

	return result
}

// countedReviews partitions the coordinate's reviews into matching-digest and
// other-digest sets, dropping reviewers below the minimum trust level. A
// distrusted reviewer always falls below it. Reviews arrive most recent
// first, so only the latest review per reviewer in each partition counts.
func (v *PackageVerifier) countedReviews(name, version, digest string) (matching, stale []candidate) {
	seenMatching := make(map[string]struct{})
	seenStale := make(map[string]struct{})
	for _, p := range v.store.ReviewsFor(name, version) {
		issuer := p.Issuer().ID
		res := v.resolver.EffectiveTrust(issuer)
		if res.Level < v.policy.MinTrustLevel {
			continue
		}

		c := candidate{proof: p, trust: res}
		if p.Review.Package.Digest == digest {
			if _, ok := seenMatching[issuer]; !ok {
				seenMatching[issuer] = struct{}{}
				matching = append(matching, c)
			}
		} else {
			if _, ok := seenStale[issuer]; !ok {
				seenStale[issuer] = struct{}{}
				stale = append(stale, c)
			}
		}
	}

	return matching, stale
}

// bestPositive picks the positive review from the most-trusted reviewer.
// Ties fall to the nearer reviewer, then to store order, which is already
// deterministic.
func bestPositive(matching []candidate) *candidate {
	var best *candidate
	for i := range matching {
		c := &matching[i]
		if c.proof.Review.Review.Rating != proof.AssertionPositive {
			continue
		}

		if best == nil || strongerReviewer(c.trust, best.trust) {
			best = c
		}
	}

	return best
}

func strongerReviewer(a, b trust.Resolution) bool {
	if a.Level != b.Level {
		return a.Level > b.Level
	}

	return a.Distance < b.Distance
}

func (v *PackageVerifier) meetsDepthBars(ratings proof.ReviewRatings) bool {
	return ratings.Thoroughness >= v.policy.MinThoroughness &&
		ratings.Understanding >= v.policy.MinUnderstanding
}

func (v *PackageVerifier) decide(result Result, verdict Verdict, c candidate) Result {
	result.Verdict = verdict
	result.ReviewerTrust = c.trust.Level
	result.Distance = c.trust.Distance
	result.Evidence = append(append([]string{}, c.trust.Path...), c.proof.Reference)
	return result
}
