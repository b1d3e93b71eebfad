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

// schemagen writes the JSON schemas for the proof wire formats.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/vouchsafe/go-vouch/envelope"
	"github.com/vouchsafe/go-vouch/proof"
)

var directory string

func init() {
	flag.StringVar(&directory, "dir", "schemagen", "Directory to store the generated schemas")
	flag.Parse()
}

func main() {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	documents := []struct {
		name  string
		id    string
		title string
		value any
	}{
		{"envelope", "https://vouchsafe.dev/proof/envelope", "Proof envelope", &envelope.Envelope{}},
		{"trust", proof.TrustProofType, "Trust proof body", &proof.TrustBody{}},
		{"review", proof.ReviewProofType, "Review proof body", &proof.ReviewBody{}},
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		log.Fatal(err)
	}

	for _, doc := range documents {
		schema := reflector.Reflect(doc.value)
		schema.ID = jsonschema.ID(doc.id)
		schema.Title = doc.title

		schemaJson, err := schema.MarshalJSON()
		if err != nil {
			log.Fatal(err)
		}

		indented := bytes.Buffer{}
		if err := json.Indent(&indented, schemaJson, "", "  "); err != nil {
			log.Fatal(err)
		}

		path := filepath.Join(directory, fmt.Sprintf("%s.json", doc.name))
		log.Printf("Writing schema for %s to %s", doc.name, path)
		if err := os.WriteFile(path, indented.Bytes(), 0o644); err != nil {
			log.Fatal(err)
		}
	}
}
