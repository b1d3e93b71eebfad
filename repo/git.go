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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/jellydator/ttlcache/v3"
	"github.com/vouchsafe/go-vouch/log"
)

const defaultFetchTTL = 15 * time.Minute

// Git is a trusted remote proof repository published as a git repository. It
// is fetched into a local cache directory once per TTL window; enumeration
// then reads the checkout like a filesystem repository.
type Git struct {
	url      string
	cacheDir string
	pattern  string
	cache    *ttlcache.Cache[string, []Document]
}

type GitOption func(*gitOptions)

type gitOptions struct {
	cacheDir string
	pattern  string
	ttl      time.Duration
}

// GitWithCacheDir overrides where remote repositories are checked out.
func GitWithCacheDir(dir string) GitOption {
	return func(o *gitOptions) {
		o.cacheDir = dir
	}
}

// GitWithPattern overrides the glob pattern used to select proof documents.
func GitWithPattern(pattern string) GitOption {
	return func(o *gitOptions) {
		o.pattern = pattern
	}
}

// GitWithFetchTTL sets how long fetched documents are reused before the
// remote is contacted again.
func GitWithFetchTTL(ttl time.Duration) GitOption {
	return func(o *gitOptions) {
		o.ttl = ttl
	}
}

// NewGit creates a remote proof repository backed by the git repo at url.
func NewGit(url string, opts ...GitOption) (*Git, error) {
	o := &gitOptions{pattern: DefaultPattern, ttl: defaultFetchTTL}
	for _, opt := range opts {
		opt(o)
	}

	if o.cacheDir == "" {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine cache directory: %w", err)
		}

		o.cacheDir = filepath.Join(userCache, "vouch", "repos")
	}

	cache := ttlcache.New[string, []Document](
		ttlcache.WithTTL[string, []Document](o.ttl),
	)

	return &Git{
		url:      url,
		cacheDir: o.cacheDir,
		pattern:  o.pattern,
		cache:    cache,
	}, nil
}

func (r *Git) Name() string {
	return "git:" + r.url
}

func (r *Git) Documents(ctx context.Context) ([]Document, error) {
	if item := r.cache.Get(r.url); item != nil {
		return item.Value(), nil
	}

	checkout, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	fsRepo, err := NewFS(checkout, FSWithPattern(r.pattern))
	if err != nil {
		return nil, err
	}

	docs, err := fsRepo.Documents(ctx)
	if err != nil {
		return nil, ErrUnreachable{Location: r.Name(), Err: err}
	}

	// rewrite references so provenance names the remote, not the checkout
	for i := range docs {
		rel := strings.TrimPrefix(docs[i].Reference, fsRepo.Name()+"/")
		docs[i].Reference = fmt.Sprintf("%s/%s", r.Name(), rel)
	}

	r.cache.Set(r.url, docs, ttlcache.DefaultTTL)
	return docs, nil
}

// fetch clones the remote on first use and pulls afterwards. A pull failure
// against an existing checkout degrades to the stale contents instead of
// failing the run.
func (r *Git) fetch(ctx context.Context) (string, error) {
	sum := sha256.Sum256([]byte(r.url))
	checkout := filepath.Join(r.cacheDir, hex.EncodeToString(sum[:8]))

	repository, err := git.PlainOpen(checkout)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if _, cloneErr := git.PlainCloneContext(ctx, checkout, false, &git.CloneOptions{
			URL:   r.url,
			Depth: 1,
		}); cloneErr != nil {
			return "", ErrUnreachable{Location: r.Name(), Err: cloneErr}
		}

		return checkout, nil
	} else if err != nil {
		return "", ErrUnreachable{Location: r.Name(), Err: err}
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return "", ErrUnreachable{Location: r.Name(), Err: err}
	}

	if err := worktree.PullContext(ctx, &git.PullOptions{}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		log.Warnf("failed to refresh proof repository %v, using cached copy: %v", r.url, err)
	}

	return checkout, nil
}
