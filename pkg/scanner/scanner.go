// Package scanner drives the periodic discovery, health, and stats sweeps
// against the tracked fleet of instances, and the disk cleanup that trims
// old error history.
package scanner

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/config"
	"github.com/0xpr03/nitter-status/pkg/fetcher"
	"github.com/0xpr03/nitter-status/pkg/monitoring"
	"github.com/0xpr03/nitter-status/pkg/ranking"
	"github.com/0xpr03/nitter-status/pkg/store"
	"github.com/0xpr03/nitter-status/pkg/versioncheck"
)

// statsSweepGap is the fixed pause between a health sweep finishing and a
// due stats sweep starting, so a flood of stats requests never lands in the
// same instant as the health probe against the same hosts.
const statsSweepGap = 1 * time.Second

// Scanner coordinates the three sweep types against the tracked fleet: list
// refresh (discovery), health checks, and stats collection. Each has an
// independent interval; a single goroutine runs them all in sequence rather
// than three competing tickers, since health and stats sweeps both hit the
// same hosts and must never overlap.
type Scanner struct {
	store   *store.Store
	cfg     common.ConfigStore
	metrics *monitoring.Service
	ranking *ranking.Builder
	engine  *versioncheck.Engine

	clientDefault *fetcher.Client
	clientIPv4    *fetcher.Client
	clientIPv6    *fetcher.Client

	lastList   time.Time
	lastHealth time.Time
	lastStats  time.Time
}

func New(s *store.Store, cfg common.ConfigStore, metrics *monitoring.Service, rb *ranking.Builder, engine *versioncheck.Engine) (*Scanner, error) {
	websiteURL := cfg.Get(common.WebsiteURLKey).Value()

	def, err := fetcher.New(fetcher.LocalAddressDefault, websiteURL)
	if err != nil {
		return nil, err
	}
	v4, err := fetcher.New(fetcher.LocalAddressIPv4, websiteURL)
	if err != nil {
		return nil, err
	}
	v6, err := fetcher.New(fetcher.LocalAddressIPv6, websiteURL)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		store:         s,
		cfg:           cfg,
		metrics:       metrics,
		ranking:       rb,
		engine:        engine,
		clientDefault: def,
		clientIPv4:    v4,
		clientIPv6:    v6,
	}, nil
}

func (s *Scanner) listInterval() time.Duration {
	return config.AsSeconds(context.Background(), s.cfg.Get(common.ListFetchIntervalKey), 6*time.Hour)
}

func (s *Scanner) healthInterval() time.Duration {
	return config.AsSeconds(context.Background(), s.cfg.Get(common.InstanceCheckIntervalKey), 5*time.Minute)
}

func (s *Scanner) statsInterval() time.Duration {
	return config.AsSeconds(context.Background(), s.cfg.Get(common.InstanceStatsIntervalKey), 15*time.Minute)
}

// Run blocks, performing sweeps on their respective schedules, until ctx is
// canceled. Every iteration in which at least one sweep ran ends by
// rebuilding the ranked snapshot, mirroring the refresh-the-cache step of the
// original scan loop.
func (s *Scanner) Run(ctx context.Context) {
	ctx = context.WithValue(ctx, common.TraceIDContextKey, "scanner")

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "scanner loop crashed", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	first := true
	for {
		if ctx.Err() != nil {
			return
		}

		now := time.Now()
		ranDone := false

		if first || now.After(s.lastList.Add(s.listInterval())) {
			s.runSweep(ctx, "list", s.listRefresh)
			s.lastList = time.Now()
			ranDone = true
		}

		if first || now.After(s.lastHealth.Add(s.healthInterval())) {
			s.runSweep(ctx, "health", s.healthSweep)
			s.lastHealth = time.Now()
			ranDone = true
		}

		if first || now.After(s.lastStats.Add(s.statsInterval())) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(statsSweepGap):
			}
			s.runSweep(ctx, "stats", s.statsSweep)
			s.lastStats = time.Now()
			ranDone = true
		}

		first = false

		if ranDone {
			if err := s.ranking.Rebuild(ctx); err != nil {
				slog.ErrorContext(ctx, "failed to rebuild ranking snapshot", common.ErrAttr(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.sleepDuration()):
		}
	}
}

func (s *Scanner) sleepDuration() time.Duration {
	next := s.lastList.Add(s.listInterval())
	if t := s.lastHealth.Add(s.healthInterval()); t.Before(next) {
		next = t
	}
	if t := s.lastStats.Add(s.statsInterval()); t.Before(next) {
		next = t
	}

	d := time.Until(next)
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (s *Scanner) runSweep(ctx context.Context, name string, f func(ctx context.Context) error) {
	start := time.Now()
	if err := f(ctx); err != nil {
		slog.ErrorContext(ctx, "sweep failed", "sweep", name, common.ErrAttr(err))
		s.metrics.ObserveSweepFailure(name)
	}
	s.metrics.ObserveScanDuration(name, time.Since(start))
}
