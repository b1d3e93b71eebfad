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

package trust

import (
	"container/heap"
	"strings"

	"github.com/vouchsafe/go-vouch/log"
	"github.com/vouchsafe/go-vouch/proof"
	"golang.org/x/exp/slices"
)

// Resolution is the effective trust placed in one identity. Distance counts
// trust edges from the nearest contributing root; Path holds the proof
// references along that chain, root first. An unreachable identity resolves
// to TrustNone with Distance -1.
type Resolution struct {
	Level    proof.TrustLevel
	Distance int
	Path     []string
}

// Resolver computes effective trust for every identity reachable from the
// configured roots. All resolutions are computed once at construction, so
// lookups are cheap and safe for concurrent use.
type Resolver struct {
	graph       *Graph
	roots       map[string]struct{}
	policy      Policy
	resolutions map[string]Resolution
}

// NewResolver validates the policy and resolves the whole graph from the
// given root identities. An invalid policy is the only error.
func NewResolver(g *Graph, roots []string, policy Policy) (*Resolver, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	r := &Resolver{
		graph:  g,
		roots:  make(map[string]struct{}),
		policy: policy,
	}

	for _, root := range roots {
		r.roots[root] = struct{}{}
	}

	r.resolutions = r.resolveAll()
	return r, nil
}

// EffectiveTrust returns the resolved trust for the identity. Roots always
// resolve to TrustHigh at distance zero regardless of what the graph says
// about them.
func (r *Resolver) EffectiveTrust(id string) Resolution {
	if res, ok := r.resolutions[id]; ok {
		return res
	}

	return Resolution{Level: proof.TrustNone, Distance: -1}
}

// IsRoot reports whether the identity is one of the configured roots.
func (r *Resolver) IsRoot(id string) bool {
	_, ok := r.roots[id]
	return ok
}

// resolveAll iterates the trust traversal to a fixpoint of the distrusted
// set. Each pass recomputes the distrust marks from scratch while excluding
// the identities the previous pass distrusted, so a mark asserted by an
// identity that is itself distrusted is retracted on the next pass,
// regardless of which of the two the traversal reached first. Distrust is
// absolute: once the fixpoint distrusts an identity, no positive path can
// restore it. Roots are exempt because local configuration outranks the
// graph.
//
// Each pass is a deterministic function of the previous distrusted set over
// a finite identity space, so the sequence of sets must eventually repeat. A
// repeat of the immediately preceding set is the fixpoint. A longer cycle
// means mutually contradictory distrust assertions; those resolve against
// every identity distrusted in any round of the cycle, since no assignment
// can honor all of them and distrust wins over trust.
func (r *Resolver) resolveAll() map[string]Resolution {
	var rounds []map[string]Resolution
	seen := make(map[string]int)
	distrusted := make(map[string]Resolution)

	for {
		fp := distrustFingerprint(distrusted)
		if first, ok := seen[fp]; ok {
			final := make(map[string]Resolution)
			for _, round := range rounds[first:] {
				for id, res := range round {
					if _, ok := final[id]; !ok {
						final[id] = res
					}
				}
			}

			resolutions, _ := r.traverse(final)
			for id, res := range final {
				resolutions[id] = res
			}

			return resolutions
		}

		seen[fp] = len(rounds)
		rounds = append(rounds, distrusted)
		_, distrusted = r.traverse(distrusted)
	}
}

func distrustFingerprint(marks map[string]Resolution) string {
	ids := make([]string, 0, len(marks))
	for id := range marks {
		ids = append(ids, id)
	}

	slices.Sort(ids)
	return strings.Join(ids, "\n")
}

type nodeState struct {
	level    proof.TrustLevel
	distance int
}

// traverse is one best-first pass over the graph from all roots at once,
// with the excluded identities removed from play entirely. Because an edge
// can only preserve or lower the trust carried into it, the first time an
// identity is popped its state is final, the same argument that makes
// Dijkstra correct. Distrust edges asserted by finalized identities are
// collected into marks; they do not affect the pass that discovers them.
func (r *Resolver) traverse(excluded map[string]Resolution) (map[string]Resolution, map[string]Resolution) {
	resolutions := make(map[string]Resolution)
	marks := make(map[string]Resolution)
	best := make(map[string]nodeState)
	finalized := make(map[string]struct{})

	q := &queue{}
	heap.Init(q)
	for root := range r.roots {
		best[root] = nodeState{level: proof.TrustHigh, distance: 0}
		heap.Push(q, queueItem{id: root, level: proof.TrustHigh, distance: 0})
	}

	for q.Len() > 0 {
		cur := heap.Pop(q).(queueItem)
		if _, ok := finalized[cur.id]; ok {
			continue
		}

		finalized[cur.id] = struct{}{}
		resolutions[cur.id] = Resolution{Level: cur.level, Distance: cur.distance, Path: cur.path}

		for _, edge := range r.graph.EdgesFrom(cur.id) {
			if edge.Level == proof.TrustDistrust {
				if _, ok := r.roots[edge.Trustee]; ok {
					log.Debugf("ignoring distrust of root %v from %v", edge.Trustee, cur.id)
					continue
				}

				if _, ok := marks[edge.Trustee]; !ok {
					marks[edge.Trustee] = Resolution{
						Level:    proof.TrustDistrust,
						Distance: cur.distance + 1,
						Path:     appendPath(cur.path, edge.Reference),
					}
				}

				continue
			}

			if _, ok := excluded[edge.Trustee]; ok {
				continue
			}

			propagated := proof.MinTrust(edge.Level, cur.level)
			if propagated <= proof.TrustNone {
				continue
			}

			distance := cur.distance + 1
			if distance > r.policy.MaxDistance {
				continue
			}

			if _, ok := finalized[edge.Trustee]; ok {
				continue
			}

			if prev, ok := best[edge.Trustee]; ok && !betterState(propagated, distance, prev) {
				continue
			}

			best[edge.Trustee] = nodeState{level: propagated, distance: distance}
			heap.Push(q, queueItem{
				id:       edge.Trustee,
				level:    propagated,
				distance: distance,
				path:     appendPath(cur.path, edge.Reference),
			})
		}
	}

	return resolutions, marks
}

func betterState(level proof.TrustLevel, distance int, prev nodeState) bool {
	if level != prev.level {
		return level > prev.level
	}

	return distance < prev.distance
}

func appendPath(path []string, ref string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, ref)
}

type queueItem struct {
	id       string
	level    proof.TrustLevel
	distance int
	path     []string
}

// queue pops the strongest candidate first: higher trust, then shorter
// distance, then identity for determinism.
type queue []queueItem

func (q queue) Len() int {
	return len(q)
}

func (q queue) Less(i, j int) bool {
	if q[i].level != q[j].level {
		return q[i].level > q[j].level
	}

	if q[i].distance != q[j].distance {
		return q[i].distance < q[j].distance
	}

	return q[i].id < q[j].id
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *queue) Push(x any) {
	*q = append(*q, x.(queueItem))
}

func (q *queue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}
