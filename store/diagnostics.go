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

package store

import "sync"

// Diagnostic records a discarded proof or an unreachable repository. They are
// collected instead of printed so parallel verification output never
// interleaves with warnings.
type Diagnostic struct {
	Reference string
	Err       error
}

// Collector is a thread safe diagnostic sink.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (c *Collector) Add(reference string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, Diagnostic{Reference: reference, Err: err})
}

// All returns a copy of the collected diagnostics.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}
