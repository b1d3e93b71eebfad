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

package proof

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// TrustLevel is the ordinal rating one identity gives another. Distrust is
// below None so that comparisons and min() behave naturally.
type TrustLevel int

const (
	TrustDistrust TrustLevel = iota
	TrustNone
	TrustLow
	TrustMedium
	TrustHigh
)

var trustLevelNames = map[TrustLevel]string{
	TrustDistrust: "distrust",
	TrustNone:     "none",
	TrustLow:      "low",
	TrustMedium:   "medium",
	TrustHigh:     "high",
}

func (l TrustLevel) String() string {
	if name, ok := trustLevelNames[l]; ok {
		return name
	}

	return fmt.Sprintf("unknown trust level (%d)", int(l))
}

func ParseTrustLevel(s string) (TrustLevel, error) {
	for level, name := range trustLevelNames {
		if name == s {
			return level, nil
		}
	}

	return TrustNone, fmt.Errorf("unknown trust level %q", s)
}

// MinTrust returns the weaker of two trust levels.
func MinTrust(a, b TrustLevel) TrustLevel {
	if a < b {
		return a
	}

	return b
}

func (l TrustLevel) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

func (l *TrustLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := ParseTrustLevel(s)
	if err != nil {
		return err
	}

	*l = parsed
	return nil
}

func (l TrustLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *TrustLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseTrustLevel(s)
	if err != nil {
		return err
	}

	*l = parsed
	return nil
}

// Level rates a review's thoroughness or understanding.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

var levelNames = map[Level]string{
	LevelLow:    "low",
	LevelMedium: "medium",
	LevelHigh:   "high",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}

	return fmt.Sprintf("unknown level (%d)", int(l))
}

func ParseLevel(s string) (Level, error) {
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}

	return LevelLow, fmt.Errorf("unknown level %q", s)
}

func (l Level) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

func (l *Level) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}

	*l = parsed
	return nil
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}

	*l = parsed
	return nil
}

// Assertion is a reviewer's overall judgement of the reviewed content.
type Assertion int

const (
	AssertionNegative Assertion = iota
	AssertionNeutral
	AssertionPositive
)

var assertionNames = map[Assertion]string{
	AssertionNegative: "negative",
	AssertionNeutral:  "neutral",
	AssertionPositive: "positive",
}

func (a Assertion) String() string {
	if name, ok := assertionNames[a]; ok {
		return name
	}

	return fmt.Sprintf("unknown assertion (%d)", int(a))
}

func ParseAssertion(s string) (Assertion, error) {
	for assertion, name := range assertionNames {
		if name == s {
			return assertion, nil
		}
	}

	return AssertionNeutral, fmt.Errorf("unknown assertion %q", s)
}

func (a Assertion) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

func (a *Assertion) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := ParseAssertion(s)
	if err != nil {
		return err
	}

	*a = parsed
	return nil
}

func (a Assertion) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Assertion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseAssertion(s)
	if err != nil {
		return err
	}

	*a = parsed
	return nil
}
