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

// Package trust builds the identity trust graph from verified trust proofs
// and resolves effective trust from a set of locally trusted roots to any
// identity in the graph.
package trust

import (
	"strings"
	"time"

	"github.com/vouchsafe/go-vouch/log"
	"github.com/vouchsafe/go-vouch/proof"
	"golang.org/x/exp/slices"
)

// Edge is one trust assertion between two identities, backed by a verified
// trust proof.
type Edge struct {
	Issuer    string
	Trustee   string
	Level     proof.TrustLevel
	Date      time.Time
	Reference string
}

// Graph is the identity trust graph. It is a pure function of the proof set:
// every edge corresponds to exactly one verified trust proof. Once built it
// is immutable, so concurrent readers need no locking; when the proof set
// changes a new graph is built rather than mutating this one.
type Graph struct {
	edgesByIssuer map[string][]Edge
	edgeCount     int
}

// NewGraph builds the graph in one pass over the trust proofs. Duplicate
// issuer to trustee pairs collapse to the most recent proof by timestamp.
func NewGraph(trustProofs []proof.Proof) *Graph {
	latest := make(map[string]Edge)
	for _, p := range trustProofs {
		if p.Kind != proof.KindTrust {
			continue
		}

		issuer := p.Trust.From.ID
		trustee := p.Trust.Trustee.ID
		if issuer == trustee {
			log.Debugf("ignoring self trust proof %v", p.Reference)
			continue
		}

		edge := Edge{
			Issuer:    issuer,
			Trustee:   trustee,
			Level:     p.Trust.Trust,
			Date:      p.Trust.Date,
			Reference: p.Reference,
		}

		key := issuer + "\x00" + trustee
		existing, ok := latest[key]
		if !ok || edge.moreRecentThan(existing) {
			latest[key] = edge
		}
	}

	g := &Graph{edgesByIssuer: make(map[string][]Edge)}
	for _, edge := range latest {
		g.edgesByIssuer[edge.Issuer] = append(g.edgesByIssuer[edge.Issuer], edge)
		g.edgeCount++
	}

	for _, edges := range g.edgesByIssuer {
		slices.SortFunc(edges, func(a, b Edge) int {
			return strings.Compare(a.Trustee, b.Trustee)
		})
	}

	return g
}

// moreRecentThan breaks exact timestamp ties on the reference so graph
// construction stays deterministic.
func (e Edge) moreRecentThan(other Edge) bool {
	if !e.Date.Equal(other.Date) {
		return e.Date.After(other.Date)
	}

	return strings.Compare(e.Reference, other.Reference) > 0
}

// EdgesFrom returns the trust edges issued by the identity, ordered by
// trustee.
func (g *Graph) EdgesFrom(id string) []Edge {
	return g.edgesByIssuer[id]
}

// Size returns the number of edges in the graph.
func (g *Graph) Size() int {
	return g.edgeCount
}
