package scanner

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/store"
	"golang.org/x/sync/errgroup"
)

// defaultStatsPath is used unless a host carries a stats_path override.
const defaultStatsPath = "/.well-known/nitter-status/health"

type statsAccounts struct {
	Total   int64  `json:"total"`
	Limited int64  `json:"limited"`
	Average *int64 `json:"average"`
}

type statsRequests struct {
	Total int64 `json:"total"`
}

type statsResponse struct {
	Accounts statsAccounts `json:"accounts"`
	Requests statsRequests `json:"requests"`
}

// statsSweep fetches and persists every enabled host's account/request
// stats concurrently, then bulk-inserts the whole batch in one transaction.
func (s *Scanner) statsSweep(ctx context.Context) error {
	hosts, err := s.store.ListEnabledHosts(ctx)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		entries []store.InstanceStats
	)

	var g errgroup.Group
	for _, h := range hosts {
		h := h
		g.Go(func() error {
			entry, ok := s.fetchInstanceStats(ctx, h)
			if !ok {
				return nil
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return s.store.InsertInstanceStatsBatch(ctx, entries)
}

// fetchInstanceStats is best-effort: a single host's failure to respond or
// to return well-formed JSON is logged and skipped, never fatal to the
// sweep.
func (s *Scanner) fetchInstanceStats(ctx context.Context, host store.Host) (store.InstanceStats, bool) {
	base, err := url.Parse(host.URL)
	if err != nil || len(base.Host) == 0 {
		return store.InstanceStats{}, false
	}

	overrides, err := s.store.GetHostOverrides(ctx, host.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load host overrides", "host", host.Domain, common.ErrAttr(err))
		overrides = nil
	}

	path := defaultStatsPath
	if o, ok := overrides[store.OverrideStatsPath]; ok && o.HasVal && len(o.Value) > 0 {
		path = o.Value
	}

	ref := &url.URL{Path: path}
	if o, ok := overrides[store.OverrideStatsQuery]; ok && o.HasVal {
		ref.RawQuery = o.Value
	}
	probeURL := base.ResolveReference(ref).String()

	var bearer string
	if o, ok := overrides[store.OverrideStatsBearer]; ok && o.HasVal {
		bearer = o.Value
	}

	_, body, err := s.clientDefault.Fetch(ctx, probeURL, bearer)
	if err != nil {
		slog.DebugContext(ctx, "stats probe failed", "host", host.Domain, common.ErrAttr(err))
		return store.InstanceStats{}, false
	}

	var resp statsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		slog.WarnContext(ctx, "stats response did not decode", "host", host.Domain, common.ErrAttr(err))
		return store.InstanceStats{}, false
	}

	if resp.Accounts.Average != nil {
		if err := s.store.UpdateAccountAgeAverage(ctx, host.ID, *resp.Accounts.Average); err != nil {
			slog.ErrorContext(ctx, "failed to update account age average", "host", host.Domain, common.ErrAttr(err))
		}
	}

	return store.InstanceStats{
		Host:          host.ID,
		Time:          time.Now().Unix(),
		LimitedAccs:   resp.Accounts.Limited,
		TotalAccs:     resp.Accounts.Total,
		TotalRequests: resp.Requests.Total,
	}, true
}
