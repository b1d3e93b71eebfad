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
	"fmt"

	"github.com/vouchsafe/go-vouch/proof"
)

// Policy configures trust resolution and review acceptance. It is owned by
// the caller; a structurally invalid policy is the only error that aborts a
// run, so it is validated before any scanning begins.
type Policy struct {
	// MaxDistance is the maximum number of trust edges a path from a root
	// may traverse.
	MaxDistance int
	// MinTrustLevel is the effective trust a reviewer needs before their
	// reviews count.
	MinTrustLevel proof.TrustLevel
	// MinThoroughness and MinUnderstanding are the review rating bars a
	// counted review must meet for a full verified verdict.
	MinThoroughness  proof.Level
	MinUnderstanding proof.Level
}

// DefaultPolicy mirrors the documented defaults. Callers may override any
// field before validation.
func DefaultPolicy() Policy {
	return Policy{
		MaxDistance:      10,
		MinTrustLevel:    proof.TrustLow,
		MinThoroughness:  proof.LevelLow,
		MinUnderstanding: proof.LevelLow,
	}
}

type ErrInvalidPolicy struct {
	Field  string
	Reason string
}

func (e ErrInvalidPolicy) Error() string {
	return fmt.Sprintf("invalid trust policy: %v %v", e.Field, e.Reason)
}

func (p Policy) Validate() error {
	if p.MaxDistance <= 0 {
		return ErrInvalidPolicy{Field: "MaxDistance", Reason: "must be a positive integer"}
	}

	if p.MinTrustLevel < proof.TrustLow || p.MinTrustLevel > proof.TrustHigh {
		return ErrInvalidPolicy{Field: "MinTrustLevel", Reason: "must be low, medium, or high"}
	}

	if p.MinThoroughness < proof.LevelLow || p.MinThoroughness > proof.LevelHigh {
		return ErrInvalidPolicy{Field: "MinThoroughness", Reason: "must be low, medium, or high"}
	}

	if p.MinUnderstanding < proof.LevelLow || p.MinUnderstanding > proof.LevelHigh {
		return ErrInvalidPolicy{Field: "MinUnderstanding", Reason: "must be low, medium, or high"}
	}

	return nil
}
