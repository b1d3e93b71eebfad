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

package vouch

import (
	"context"

	"github.com/vouchsafe/go-vouch/repo"
	"github.com/vouchsafe/go-vouch/scan"
	"github.com/vouchsafe/go-vouch/store"
	"github.com/vouchsafe/go-vouch/trust"
	"github.com/vouchsafe/go-vouch/verify"
)

type scanOptions struct {
	repositories []repo.Repository
	roots        []string
	policy       trust.Policy
	workers      int
}

type ScanOption func(*scanOptions)

// ScanWithRepositories adds proof repositories to load proofs from.
func ScanWithRepositories(repositories ...repo.Repository) ScanOption {
	return func(so *scanOptions) {
		so.repositories = append(so.repositories, repositories...)
	}
}

// ScanWithRoots adds identities, by key ID, that are trusted unconditionally.
func ScanWithRoots(roots ...string) ScanOption {
	return func(so *scanOptions) {
		so.roots = append(so.roots, roots...)
	}
}

// ScanWithPolicy overrides the default trust policy.
func ScanWithPolicy(policy trust.Policy) ScanOption {
	return func(so *scanOptions) {
		so.policy = policy
	}
}

// ScanWithWorkers bounds the scan worker pool. The default is one worker per
// CPU.
func ScanWithWorkers(workers int) ScanOption {
	return func(so *scanOptions) {
		so.workers = workers
	}
}

// ScanResult is the outcome of scanning one dependency list.
type ScanResult struct {
	// Results holds one verdict per input dependency, in input order. On
	// cancellation it holds only the dependencies verified before the cut.
	Results []verify.Result
	// Diagnostics records every discarded proof and unreachable repository
	// encountered while loading, plus per-dependency findings such as
	// non-semver versions and failed digests.
	Diagnostics []store.Diagnostic
	// Degraded reports that some proof repository could not be read.
	Degraded bool
}

// Scan loads the configured proof repositories once, builds the trust graph,
// and verifies every dependency against it with a bounded worker pool. An
// invalid policy is the only fatal error besides cancellation: missing
// proofs, unreachable repositories, and failed digests all degrade to
// per-package verdicts and diagnostics instead.
func Scan(ctx context.Context, deps []scan.Dependency, opts ...ScanOption) (ScanResult, error) {
	so := &scanOptions{policy: trust.DefaultPolicy()}
	for _, opt := range opts {
		opt(so)
	}

	if err := so.policy.Validate(); err != nil {
		return ScanResult{}, err
	}

	proofStore, err := store.Load(ctx, so.repositories)
	if err != nil {
		return ScanResult{}, err
	}

	resolver, err := trust.NewResolver(trust.NewGraph(proofStore.TrustProofs()), so.roots, so.policy)
	if err != nil {
		return ScanResult{}, err
	}

	verifier, err := verify.NewPackageVerifier(proofStore, resolver, so.policy)
	if err != nil {
		return ScanResult{}, err
	}

	scanDiags := &store.Collector{}
	scannerOpts := []scan.Option{scan.WithDiagnostics(scanDiags)}
	if so.workers > 0 {
		scannerOpts = append(scannerOpts, scan.WithWorkers(so.workers))
	}

	results, err := scan.NewScanner(verifier, scannerOpts...).Scan(ctx, deps)
	return ScanResult{
		Results:     results,
		Diagnostics: append(proofStore.Diagnostics(), scanDiags.All()...),
		Degraded:    proofStore.Degraded(),
	}, err
}
