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

package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)
	return &testRepo{t: t, dir: dir, repo: repo}
}

func (r *testRepo) commit(files map[string]string) plumbing.Hash {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	require.NoError(r.t, err)

	for name, content := range files {
		path := filepath.Join(r.dir, filepath.FromSlash(name))
		require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(r.t, err)
	}

	hash, err := wt.Commit("update", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(r.t, err)
	return hash
}

func TestRepository_Info(t *testing.T) {
	tr := newTestRepo(t)
	hash := tr.commit(map[string]string{"gallery.yaml": "name: gal1\n"})

	_, err := tr.repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/colbylwilliams/devbox-images.git"},
	})
	require.NoError(t, err)

	sub := filepath.Join(tr.dir, "images")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	repo, err := Open(sub)
	require.NoError(t, err)

	info, err := repo.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "main", info.Branch)
	assert.Equal(t, hash.String(), info.Commit)
	assert.Equal(t, "https://github.com/colbylwilliams/devbox-images.git", info.Origin)
}

func TestRepository_InfoWithoutRemote(t *testing.T) {
	tr := newTestRepo(t)
	tr.commit(map[string]string{"a.txt": "a"})

	repo, err := Open(tr.dir)
	require.NoError(t, err)
	info, err := repo.Info(context.Background())
	require.NoError(t, err)
	assert.Empty(t, info.Origin)
}

func TestRepository_ChangedFiles(t *testing.T) {
	tr := newTestRepo(t)
	base := tr.commit(map[string]string{
		"images/vscode/image.yaml": "version: 1.0.0\n",
		"images/java/image.yaml":   "version: 1.0.0\n",
		"README.md":                "readme",
	})
	tr.commit(map[string]string{
		"images/vscode/image.yaml": "version: 1.0.1\n",
		"scripts/install.ps1":      "Write-Host hi",
	})

	repo, err := Open(tr.dir)
	require.NoError(t, err)

	changed, err := repo.ChangedFiles(context.Background(), base.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"images/vscode/image.yaml", "scripts/install.ps1"}, changed)

	changed, err = repo.ChangedFiles(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestRepository_Errors(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)

	tr := newTestRepo(t)
	tr.commit(map[string]string{"a.txt": "a"})
	repo, err := Open(tr.dir)
	require.NoError(t, err)
	_, err = repo.ChangedFiles(context.Background(), "does-not-exist")
	assert.Error(t, err)
}
