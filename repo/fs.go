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

package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	homedir "github.com/mitchellh/go-homedir"
)

// FS is a proof repository rooted at a local directory.
type FS struct {
	root    string
	pattern glob.Glob
}

type FSOption func(*fsOptions)

type fsOptions struct {
	pattern string
}

// FSWithPattern overrides the glob pattern used to select proof documents.
func FSWithPattern(pattern string) FSOption {
	return func(o *fsOptions) {
		o.pattern = pattern
	}
}

// NewFS creates a filesystem proof repository. The path may start with ~.
func NewFS(path string, opts ...FSOption) (*FS, error) {
	o := &fsOptions{pattern: DefaultPattern}
	for _, opt := range opts {
		opt(o)
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand repository path: %w", err)
	}

	pattern, err := glob.Compile(o.pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid proof document pattern %q: %w", o.pattern, err)
	}

	return &FS{root: expanded, pattern: pattern}, nil
}

func (r *FS) Name() string {
	return "fs:" + r.root
}

// Write stores a proof document under the repository root, in a directory
// named for the issuing identity. The file name is derived from the content,
// so rewriting the same document is idempotent. Returns the stored
// document's reference.
func (r *FS) Write(issuerID string, data []byte) (string, error) {
	dir := filepath.Join(r.root, issuerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create proof directory: %w", err)
	}

	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:8]) + ".proof.json"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write proof document: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", r.Name(), issuerID, name), nil
}

func (r *FS) Documents(ctx context.Context) ([]Document, error) {
	if _, err := os.Stat(r.root); err != nil {
		return nil, ErrUnreachable{Location: r.Name(), Err: err}
	}

	docs := []Document{}
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() || !r.pattern.Match(d.Name()) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			rel = path
		}

		docs = append(docs, Document{
			Reference: fmt.Sprintf("%s/%s", r.Name(), filepath.ToSlash(rel)),
			Bytes:     data,
		})
		return nil
	})
	if err != nil {
		return nil, ErrUnreachable{Location: r.Name(), Err: err}
	}

	return docs, nil
}
