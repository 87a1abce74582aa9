// Package ranking builds the periodically-refreshed, read-mostly snapshot
// served by the public API: every tracked host enriched with windowed
// health ratios, version popularity, ping history, and a single weighted
// score used to rank the fleet.
package ranking

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/config"
	"github.com/0xpr03/nitter-status/pkg/monitoring"
	"github.com/0xpr03/nitter-status/pkg/store"
	"github.com/0xpr03/nitter-status/pkg/versioncheck"
)

const (
	window3h   = 3 * time.Hour
	window30d  = 30 * 24 * time.Hour
	window120d = 120 * 24 * time.Hour

	// showLastSeenAge is the staleness threshold past which a host is
	// flagged for "last seen" display instead of a live status.
	showLastSeenAge = 12 * time.Hour

	recentChecksLimit = 22
	recentCheckFormat = "2006.01.02 15:04"

	weight3h   = 0.3
	weight30d  = 0.2
	weight120d = 0.2
	weightVer  = 0.1
)

// RecentCheck is one formatted entry of a host's recent health history, in
// ascending time order.
type RecentCheck struct {
	Time    string
	Healthy bool
}

// Host is one ranked fleet member in the published snapshot.
type Host struct {
	ID                       int64
	Domain                   string
	URL                      string
	Country                  string
	RSS                      bool
	Version                  string
	HasVersion               bool
	VersionURL               string
	Healthy                  bool
	HasHealthy               bool
	LastHealthy              int64
	HasLastHealthy           bool
	PingAvg                  int64
	PingMin                  int64
	PingMax                  int64
	HasPing                  bool
	RecentPings              []*int64
	RecentChecks             []RecentCheck
	Points                   int
	HealthyPercentageOverall int64
	ShowLastSeen             bool
	VersionState             versioncheck.CommitState
	IsBadHost                bool
	latestCheckTime          int64
	hasLatestCheck           bool
}

// Snapshot is one immutable, fully-built ranking result.
type Snapshot struct {
	Hosts        []Host
	LastUpdate   time.Time
	LatestCommit string
}

// Builder owns the mutable snapshot and the dependencies needed to
// regenerate it.
type Builder struct {
	store   *store.Store
	engine  *versioncheck.Engine
	metrics *monitoring.Service
	cfg     common.ConfigStore

	mu       sync.RWMutex
	snapshot *Snapshot
}

func NewBuilder(s *store.Store, engine *versioncheck.Engine, metrics *monitoring.Service, cfg common.ConfigStore) *Builder {
	return &Builder{
		store:    s,
		engine:   engine,
		metrics:  metrics,
		cfg:      cfg,
		snapshot: &Snapshot{LastUpdate: time.Time{}},
	}
}

// Current returns the most recently published snapshot. Safe for
// concurrent use while Rebuild runs.
func (b *Builder) Current() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

func ratio(m map[int64]store.HostStats, host int64) float64 {
	hs, ok := m[host]
	if !ok || hs.Total == 0 {
		return 0
	}
	return float64(hs.Good) / float64(hs.Total)
}

// Rebuild regenerates the snapshot from the current store contents and
// publishes it atomically. Mirrors the upstream cache generation: query
// every enabled host and its windowed stats in bulk, score each one, sort
// descending, then swap the whole snapshot under lock.
func (b *Builder) Rebuild(ctx context.Context) error {
	start := time.Now()
	defer func() {
		b.metrics.ObserveScanDuration("ranking", time.Since(start))
	}()

	hosts, err := b.store.ListEnabledHosts(ctx)
	if err != nil {
		return err
	}

	var latestCommit string
	if tip, err := b.engine.LatestCommit(); err == nil {
		latestCommit = tip
	}

	if len(hosts) == 0 {
		b.publish(&Snapshot{LastUpdate: time.Now(), LatestCommit: latestCommit})
		return nil
	}

	now := time.Now()
	stats3h, err := b.store.QueryStatsRange(ctx, now.Add(-window3h).Unix(), now.Unix())
	if err != nil {
		return err
	}
	stats30d, err := b.store.QueryStatsRange(ctx, now.Add(-window30d).Unix(), now.Unix())
	if err != nil {
		return err
	}
	stats120d, err := b.store.QueryStatsRange(ctx, now.Add(-window120d).Unix(), now.Add(-window30d).Unix())
	if err != nil {
		return err
	}
	lastHealthy, err := b.store.QueryLastHealthy(ctx)
	if err != nil {
		return err
	}
	versionPoints, err := b.store.QueryVersionPoints(ctx, now.Add(-window30d).Unix())
	if err != nil {
		return err
	}
	latestCheck, err := b.store.QueryLatestCheck(ctx)
	if err != nil {
		return err
	}
	pingRange := configPingRange(ctx, b.cfg)
	pings, err := b.store.QueryPings(ctx, now.Add(-pingRange).Unix())
	if err != nil {
		return err
	}
	badHosts, err := b.store.AllBadHosts(ctx)
	if err != nil {
		return err
	}
	healthyPct, err := b.store.QueryHealthyPercentageOverall(ctx)
	if err != nil {
		return err
	}

	result := make([]Host, 0, len(hosts))
	for _, h := range hosts {
		r3h := ratio(stats3h, h.ID)
		r30d := ratio(stats30d, h.ID)
		r120d := ratio(stats120d, h.ID)

		var pv float64
		if h.HasVersion {
			pv = versionPoints[h.Version]
		}

		s0 := weight3h*r3h + weight30d*r30d + weight120d*r120d + weightVer*pv
		score := int(math.Round(100 * r3h * s0))

		rh := Host{
			ID:         h.ID,
			Domain:     h.Domain,
			URL:        h.URL,
			Country:    h.Country,
			RSS:        h.RSS,
			Version:    h.Version,
			HasVersion: h.HasVersion,
			VersionURL: h.VersionURL,
			Points:     score,
			IsBadHost:  isBadHost(badHosts, h.ID),
		}

		if lc, ok := latestCheck[h.ID]; ok {
			rh.Healthy = lc.Healthy
			rh.HasHealthy = true
			rh.latestCheckTime = lc.Time
			rh.hasLatestCheck = true
		}
		if lh, ok := lastHealthy[h.ID]; ok {
			rh.LastHealthy = lh
			rh.HasLastHealthy = true
		}
		rh.HealthyPercentageOverall = healthyPct[h.ID]
		rh.ShowLastSeen = !rh.HasLastHealthy || now.Sub(time.Unix(rh.LastHealthy, 0)) > showLastSeenAge
		if lp, ok := pings[h.ID]; ok {
			rh.RecentPings = lp.Pings
			if lp.HasAvg {
				rh.PingAvg, rh.PingMin, rh.PingMax, rh.HasPing = lp.Avg, lp.Min, lp.Max, true
			}
		}

		rh.VersionState = b.versionState(ctx, h)

		checks, err := b.store.RecentHealthChecks(ctx, h.ID, recentChecksLimit)
		if err != nil {
			return err
		}
		rh.RecentChecks = make([]RecentCheck, len(checks))
		for i, c := range checks {
			// checks arrive newest-first; reverse into ascending order.
			rh.RecentChecks[len(checks)-1-i] = RecentCheck{
				Time:    time.Unix(c.Time, 0).UTC().Format(recentCheckFormat),
				Healthy: c.Healthy,
			}
		}

		result = append(result, rh)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return lessHost(result[i], result[j])
	})

	b.metrics.ObserveRankedHosts(len(result))
	b.metrics.ObserveCacheHitRatio(b.engine.HitRatio())

	b.publish(&Snapshot{
		Hosts:        result,
		LastUpdate:   now,
		LatestCommit: latestCommit,
	})
	return nil
}

func isBadHost(bad map[int64]struct{}, host int64) bool {
	_, ok := bad[host]
	return ok
}

func (b *Builder) versionState(ctx context.Context, h store.Host) versioncheck.CommitState {
	if h.HasVersionURL && len(h.VersionURL) > 0 {
		return b.engine.CheckURL(ctx, h.VersionURL).State
	}
	if h.HasVersion {
		return b.engine.CheckCommit(ctx, h.Version).State
	}
	return versioncheck.UnknownCommit
}

// lessHost orders hosts descending by score, with zero-score hosts
// segregated to the bottom regardless of tie-break outcome. Among S>0
// hosts, ties break on healthy_percentage_overall descending. Among S==0
// hosts, recently-seen hosts (show_last_seen == false) sort first, then
// ascending last_healthy with a known value sorting before none.
func lessHost(a, b Host) bool {
	aZero := a.Points == 0
	bZero := b.Points == 0
	if aZero != bZero {
		return !aZero
	}
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if !aZero {
		return a.HealthyPercentageOverall > b.HealthyPercentageOverall
	}
	return zeroScoreTieBreak(a, b)
}

func zeroScoreTieBreak(a, b Host) bool {
	if a.ShowLastSeen != b.ShowLastSeen {
		return !a.ShowLastSeen
	}
	if a.HasLastHealthy != b.HasLastHealthy {
		return a.HasLastHealthy
	}
	if a.HasLastHealthy && b.HasLastHealthy {
		return a.LastHealthy < b.LastHealthy
	}
	return false
}

func configPingRange(ctx context.Context, cfg common.ConfigStore) time.Duration {
	const def = 24 * time.Hour
	return config.AsSeconds(ctx, cfg.Get(common.PingRangeKey), def)
}

func (b *Builder) publish(s *Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = s
}
