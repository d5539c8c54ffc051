/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

// Package git reads repository metadata and parses repository URLs.
package git

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/colbylwilliams/devbox-images/logging"
)

// Info describes the checked-out revision of a repository.
type Info struct {
	Branch string
	Commit string
	Origin string
}

// Repository is an opened git working tree.
type Repository struct {
	repo *git.Repository
}

// Open opens the repository containing dir, searching parent directories
// for the .git directory.
func Open(dir string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", dir, err)
	}
	return &Repository{repo: repo}, nil
}

// Info returns the current branch, HEAD commit and origin URL. The branch
// is empty on a detached HEAD and the origin is empty without a remote.
func (r *Repository) Info(ctx context.Context) (Info, error) {
	head, err := r.repo.Head()
	if err != nil {
		return Info{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	info := Info{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	remote, err := r.repo.Remote("origin")
	if err != nil {
		logging.DebugContext(ctx, "No origin remote: %v", err)
		return info, nil
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		info.Origin = urls[0]
	}
	return info, nil
}

// ChangedFiles returns the sorted, slash-separated paths that differ
// between base and HEAD. base is any revision go-git can resolve
// (branch, tag, hash, HEAD~n).
func (r *Repository) ChangedFiles(ctx context.Context, base string) ([]string, error) {
	baseTree, err := r.tree(base)
	if err != nil {
		return nil, err
	}
	headTree, err := r.tree(plumbing.HEAD.String())
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..HEAD: %w", base, err)
	}

	seen := map[string]bool{}
	for _, change := range changes {
		for _, name := range []string{change.From.Name, change.To.Name} {
			if name != "" {
				seen[name] = true
			}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	logging.DebugContext(ctx, "%d files changed since %s", len(paths), base)
	return paths, nil
}

func (r *Repository) tree(rev string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	return commit.Tree()
}
