package versioncheck

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
)

// CommitState is the classification of a commit sha against the configured
// upstream branch.
type CommitState int

const (
	Outdated CommitState = iota
	Current
	CustomBranch
	UnknownCommit
	Missing
)

func (s CommitState) String() string {
	switch s {
	case Outdated:
		return "outdated"
	case Current:
		return "current"
	case CustomBranch:
		return "custom_branch"
	case UnknownCommit:
		return "unknown_commit"
	case Missing:
		return "missing"
	default:
		return "unknown"
	}
}

func (s CommitState) IsUpstream() bool {
	return s == Outdated || s == Current
}

func (s CommitState) IsLatestVersion() bool {
	return s == Current
}

type CommitInfo struct {
	State CommitState
}

type pcOtterLogger struct{}

func (pcOtterLogger) Warn(ctx context.Context, msg string, err error) {
	slog.WarnContext(ctx, msg, "source", "otter", common.ErrAttr(err))
}
func (pcOtterLogger) Error(ctx context.Context, msg string, err error) {
	slog.ErrorContext(ctx, msg, "source", "otter", common.ErrAttr(err))
}

// generationalCache wraps an otter cache with an epoch counter: entries last
// written or hit more than one generation ago are treated as misses without
// being actively evicted one-by-one, since a commit resolved against a branch
// tip two fetches old is no longer trustworthy.
type generationalCache struct {
	store      *otter.Cache[string, CommitInfo]
	counter    *stats.Counter
	generation atomic.Int64
	mu         sync.Mutex
	entryGen   map[string]int64
}

func newGenerationalCache(maxSize int) (*generationalCache, error) {
	counter := stats.NewCounter()
	store, err := otter.New(&otter.Options[string, CommitInfo]{
		MaximumSize:      maxSize,
		InitialCapacity:  max(64, maxSize/10),
		ExpiryCalculator: otter.ExpiryWriting[string, CommitInfo](24 * time.Hour),
		StatsRecorder:    counter,
		Logger:           &pcOtterLogger{},
	})
	if err != nil {
		return nil, err
	}

	return &generationalCache{
		store:    store,
		counter:  counter,
		entryGen: make(map[string]int64),
	}, nil
}

func (c *generationalCache) HitRatio() float64 {
	return c.counter.Snapshot().HitRatio()
}

// Bump advances the generation; an entry last written or hit two or more
// generations ago becomes a miss the next time it's looked up.
func (c *generationalCache) Bump() {
	c.generation.Add(1)
}

// Get serves an entry written in the current generation or the one just
// before it: a fetch that lands between a caller's last read and this one
// doesn't invalidate data that's still fresh. An entry survives exactly one
// Bump past its own write, and a hit promotes it to the current generation
// so it survives the next Bump too. Anything older is a miss.
func (c *generationalCache) Get(sha string) (CommitInfo, bool) {
	info, found := c.store.GetIfPresent(sha)
	if !found {
		return CommitInfo{}, false
	}

	current := c.generation.Load()

	c.mu.Lock()
	gen, ok := c.entryGen[sha]
	if ok && current-gen <= 1 {
		c.entryGen[sha] = current
	}
	c.mu.Unlock()

	if !ok || current-gen > 1 {
		return CommitInfo{}, false
	}

	return info, true
}

func (c *generationalCache) Set(sha string, info CommitInfo) {
	c.store.Set(sha, info)

	c.mu.Lock()
	c.entryGen[sha] = c.generation.Load()
	c.mu.Unlock()
}
