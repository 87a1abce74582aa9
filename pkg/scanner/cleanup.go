package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/config"
	"github.com/0xpr03/nitter-status/pkg/store"
)

// CleanupJob periodically trims check_error history down to a fixed number
// of most-recent rows per host, across every host (enabled or not).
type CleanupJob struct {
	store *store.Store
	cfg   common.ConfigStore
}

func NewCleanupJob(s *store.Store, cfg common.ConfigStore) *CleanupJob {
	return &CleanupJob{store: s, cfg: cfg}
}

func (j *CleanupJob) Name() string { return "cleanup" }

func (j *CleanupJob) NewParams() any { return nil }

func (j *CleanupJob) RunOnce(ctx context.Context, _ any) error {
	retain := config.AsInt(ctx, j.cfg.Get(common.ErrorRetentionPerHostKey), 100)

	deleted, err := j.store.CleanupCheckErrors(ctx, retain)
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "cleanup finished", "deleted", deleted, "retain_per_host", retain)
	return nil
}

func (j *CleanupJob) Interval() time.Duration {
	return config.AsSeconds(context.Background(), j.cfg.Get(common.CleanupIntervalKey), 24*time.Hour)
}

func (j *CleanupJob) Jitter() time.Duration { return 1 }

func (j *CleanupJob) Timeout() time.Duration { return 5 * time.Minute }

func (j *CleanupJob) Trigger() <-chan struct{} { return nil }
