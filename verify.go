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
	"fmt"
	"io"

	"github.com/vouchsafe/go-vouch/proof"
	"github.com/vouchsafe/go-vouch/scan"
	"github.com/vouchsafe/go-vouch/verify"
)

// VerifySignature parses a proof document and verifies its signature against
// the issuing identity's embedded public key.
func VerifySignature(ctx context.Context, r io.Reader) (proof.Proof, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return proof.Proof{}, fmt.Errorf("failed to read proof document: %w", err)
	}

	return proof.Parse(ctx, data)
}

// VerifyPackage resolves the verdict for a single package version. It loads
// the configured proof repositories, builds the trust graph, and verifies
// the one coordinate; for whole dependency lists use Scan, which loads
// everything once.
func VerifyPackage(ctx context.Context, name, version, digest string, opts ...ScanOption) (verify.Result, error) {
	result, err := Scan(ctx, []scan.Dependency{{
		Name:    name,
		Version: version,
		Digest:  func(context.Context) (string, error) { return digest, nil },
	}}, opts...)
	if err != nil {
		return verify.Result{}, err
	}

	if len(result.Results) != 1 {
		return verify.Result{}, fmt.Errorf("expected one verdict but got %v", len(result.Results))
	}

	return result.Results[0], nil
}
