package versioncheck

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/0xpr03/nitter-status/pkg/common"
)

const maxCacheEntries = 4096

// Engine classifies commit shas and commit URLs against a local bare clone
// of the configured upstream repository. Each exported method that touches
// the repository or the cache takes the engine's mutex itself, so concurrent
// calls are serialized one call at a time.
type Engine struct {
	mu     sync.Mutex
	repo   *bareRepo
	cache  *generationalCache
	branch string
}

func NewEngine(ctx context.Context, scratchFolder, repoURL, branch string) (*Engine, error) {
	repo, err := openOrCloneBare(ctx, scratchFolder, repoURL, branch)
	if err != nil {
		return nil, err
	}

	cache, err := newGenerationalCache(maxCacheEntries)
	if err != nil {
		return nil, err
	}

	return &Engine{
		repo:   repo,
		cache:  cache,
		branch: branch,
	}, nil
}

// WithLock runs f while holding the engine's exclusive lock. The lock is not
// reentrant, so f must not call the engine's other locking methods.
func (e *Engine) WithLock(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f()
}

func (e *Engine) HitRatio() float64 {
	return e.cache.HitRatio()
}

// UpdateRemote fetches the branch namespace and bumps the generation
// counter, so a cached verdict not read since the previous fetch becomes
// stale.
func (e *Engine) UpdateRemote(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.updateRemote(ctx); err != nil {
		return err
	}

	e.cache.Bump()

	return nil
}

func (e *Engine) LatestCommit() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tip, err := e.repo.branchTip()
	if err != nil {
		return "", err
	}

	return tip.String(), nil
}

// CheckURL extracts the trailing sha-like segment from a commit URL and
// classifies it; an empty segment is always UnknownCommit.
func (e *Engine) CheckURL(ctx context.Context, commitURL string) CommitInfo {
	sha := lastPathSegment(commitURL)
	if len(sha) == 0 {
		return CommitInfo{State: UnknownCommit}
	}

	return e.CheckCommit(ctx, sha)
}

func lastPathSegment(url string) string {
	trimmed := strings.TrimRight(url, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx == -1 {
		return trimmed
	}
	return trimmed[idx+1:]
}

func (e *Engine) CheckCommit(ctx context.Context, sha string) CommitInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	if info, found := e.cache.Get(sha); found {
		slog.Log(ctx, common.LevelTrace, "Version check cache hit", "sha", sha, "state", info.State.String())
		return info
	}

	info := e.classifyLocked(sha)
	e.cache.Set(sha, info)

	return info
}

func (e *Engine) classifyLocked(sha string) CommitInfo {
	commit, err := e.repo.commit(sha)
	if err != nil {
		return CommitInfo{State: UnknownCommit}
	}

	tip, err := e.repo.branchTip()
	if err != nil {
		return CommitInfo{State: Missing}
	}

	if commit.Hash == tip {
		return CommitInfo{State: Current}
	}

	reachable, err := e.repo.reachableFromTip(tip, commit.Hash)
	if err != nil {
		return CommitInfo{State: Missing}
	}

	if reachable {
		return CommitInfo{State: Outdated}
	}

	return CommitInfo{State: CustomBranch}
}
