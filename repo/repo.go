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

// Package repo provides access to proof repositories: locations holding one
// canonical proof document per file, grouped by issuing identity. The store
// only needs raw document bytes plus a stable reference for provenance.
package repo

import "context"

// DefaultPattern matches the proof document files inside a repository.
const DefaultPattern = "*.proof.json"

// Document is one raw proof document and where it came from.
type Document struct {
	// Reference is a stable identifier for the document used in diagnostics
	// and verdict evidence.
	Reference string
	Bytes     []byte
}

// Repository enumerates proof documents. Implementations never mutate the
// underlying location.
type Repository interface {
	// Name identifies the repository in diagnostics.
	Name() string
	Documents(ctx context.Context) ([]Document, error)
}

type ErrUnreachable struct {
	Location string
	Err      error
}

func (e ErrUnreachable) Error() string {
	return "proof repository " + e.Location + " is unreachable: " + e.Err.Error()
}

func (e ErrUnreachable) Unwrap() error {
	return e.Err
}
