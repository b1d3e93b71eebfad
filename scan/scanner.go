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

// Package scan verifies a dependency list against the proof set using a
// bounded worker pool.
package scan

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/vouchsafe/go-vouch/log"
	"github.com/vouchsafe/go-vouch/proof"
	"github.com/vouchsafe/go-vouch/store"
	"github.com/vouchsafe/go-vouch/verify"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"
)

// DigestFunc computes the content digest of a dependency's source tree on
// demand. It may do file or network I/O, so it takes the scan context.
type DigestFunc func(ctx context.Context) (string, error)

// Dependency is one entry of the dependency list under scan.
type Dependency struct {
	Name    string
	Version string
	Digest  DigestFunc
}

// Scanner runs package verification for whole dependency lists. Verification
// itself is pure computation over the shared immutable verifier, so the pool
// size only bounds concurrent digest work.
type Scanner struct {
	verifier *verify.PackageVerifier
	workers  int
	diags    *store.Collector
}

type Option func(*Scanner)

// WithWorkers bounds the worker pool. Values below one fall back to the
// default of one worker per CPU.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithDiagnostics collects per-dependency findings, such as non-semver
// versions and failed digests, into the given sink so callers see them
// without a logger installed.
func WithDiagnostics(c *store.Collector) Option {
	return func(s *Scanner) {
		s.diags = c
	}
}

func NewScanner(verifier *verify.PackageVerifier, opts ...Option) *Scanner {
	s := &Scanner{
		verifier: verifier,
		workers:  runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan verifies every dependency and returns one result per input entry, in
// input order. A dependency whose digest cannot be computed gets an unknown
// verdict rather than failing the scan. On cancellation the results for
// dependencies verified so far are returned alongside the context error;
// unstarted dependencies produce no entry at all.
func (s *Scanner) Scan(ctx context.Context, deps []Dependency) ([]verify.Result, error) {
	results := make([]verify.Result, len(deps))
	completed := make([]bool, len(deps))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)
	for i, dep := range deps {
		i, dep := i, dep
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i] = s.verifyOne(ctx, dep)
			completed[i] = true
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		partial := make([]verify.Result, 0, len(results))
		for i := range results {
			if completed[i] {
				partial = append(partial, results[i])
			}
		}

		return partial, err
	}

	return results, nil
}

func (s *Scanner) verifyOne(ctx context.Context, dep Dependency) verify.Result {
	coordinate := dep.Name + "@" + dep.Version
	if version := dep.Version; version != "" && !semver.IsValid("v"+strings.TrimPrefix(version, "v")) {
		log.Debugf("dependency %v has non-semver version %v", dep.Name, version)
		s.report(coordinate, fmt.Errorf("version %q is not a semantic version", version))
	}

	digest, err := s.digest(ctx, dep)
	if err != nil {
		log.Warnf("failed to compute digest for %v: %v", coordinate, err)
		s.report(coordinate, err)
		return verify.Result{
			Name:          dep.Name,
			Version:       dep.Version,
			Verdict:       verify.VerdictUnknown,
			ReviewerTrust: proof.TrustNone,
			Distance:      -1,
		}
	}

	return s.verifier.Verify(dep.Name, dep.Version, digest)
}

func (s *Scanner) report(reference string, err error) {
	if s.diags != nil {
		s.diags.Add(reference, err)
	}
}

func (s *Scanner) digest(ctx context.Context, dep Dependency) (string, error) {
	if dep.Digest == nil {
		return "", fmt.Errorf("no digest provider for %v@%v", dep.Name, dep.Version)
	}

	return dep.Digest(ctx)
}
