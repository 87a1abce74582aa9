package scanner

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/config"
	"github.com/0xpr03/nitter-status/pkg/profileparser"
	"github.com/0xpr03/nitter-status/pkg/store"
	"github.com/0xpr03/nitter-status/pkg/wikiparser"
	"golang.org/x/sync/errgroup"

	"log/slog"
)

func (s *Scanner) additionalHosts() []wikiparser.AdditionalHost {
	raw := s.cfg.Get(common.AdditionalHostsKey).Value()
	country := s.cfg.Get(common.AdditionalHostCountryKey).Value()
	if len(raw) == 0 {
		return nil
	}

	var hosts []wikiparser.AdditionalHost
	for _, u := range strings.Split(raw, ",") {
		u = strings.TrimSpace(u)
		if len(u) == 0 {
			continue
		}
		hosts = append(hosts, wikiparser.AdditionalHost{URL: u, Country: country})
	}
	return hosts
}

// listRefresh fetches the upstream instance list, reconciles it against the
// store (disabling hosts no longer present), and probes every instance's
// connectivity, RSS, and version in parallel. It shares its interval with
// the version-check engine's remote refresh, since both are "what does
// upstream look like right now" discovery steps.
func (s *Scanner) listRefresh(ctx context.Context) error {
	if err := s.engine.UpdateRemote(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to update version-check remote", common.ErrAttr(err))
	}

	listURL := s.cfg.Get(common.InstanceListURLKey).Value()

	_, body, err := s.clientDefault.Fetch(ctx, listURL, "")
	if err != nil {
		return fmt.Errorf("fetching instance list: %w", err)
	}

	instances, err := wikiparser.Parse(body, s.additionalHosts(), false)
	if err != nil {
		return fmt.Errorf("parsing instance list: %w", err)
	}

	now := time.Now().Unix()

	seen := make(map[string]struct{}, len(instances))
	for domain := range instances {
		seen[domain] = struct{}{}
	}
	if err := s.store.DisableStaleHosts(ctx, seen, now); err != nil {
		return fmt.Errorf("disabling stale hosts: %w", err)
	}

	var ids []int64
	for domain, inst := range instances {
		id, err := s.store.UpsertHost(ctx, domain, inst.URL, inst.Country, now)
		if err != nil {
			slog.ErrorContext(ctx, "failed to upsert host", "domain", domain, common.ErrAttr(err))
			continue
		}
		ids = append(ids, id)
	}

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			s.probeHost(ctx, id)
			return nil
		})
	}
	return g.Wait()
}

// probeHost runs the connectivity/RSS/version probes for a single host and
// writes the result. Failures are logged and swallowed per host so one bad
// instance never aborts the whole list refresh.
func (s *Scanner) probeHost(ctx context.Context, hostID int64) {
	host, err := s.store.GetHost(ctx, hostID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load host for probing", "host", hostID, common.ErrAttr(err))
		return
	}

	base, err := url.Parse(host.URL)
	if err != nil || len(base.Host) == 0 {
		s.logInstanceIssue(ctx, host, "instance URL invalid", common.ErrAttr(err))
		return
	}

	result := store.ProbeResult{}

	result.Connectivity, result.HasConn = s.probeConnectivity(ctx, base)

	if !s.sleepBetweenProbes(ctx) {
		return
	}

	if s.probeRSS(ctx, base) {
		result.RSS = true
	}

	if !s.sleepBetweenProbes(ctx) {
		return
	}

	if v, ok := s.probeVersion(ctx, base); ok {
		result.Version, result.HasVersion = v.Text, true
		result.VersionURL, result.HasVersionURL = v.URL, len(v.URL) > 0
	}

	if err := s.store.UpdateHostProbeResult(ctx, hostID, result); err != nil {
		slog.ErrorContext(ctx, "failed to persist probe result", "host", hostID, common.ErrAttr(err))
	}
}

// sleepBetweenProbes is the 1s DoS-mitigation gap required between every
// pair of sibling per-host probes during list refresh, not just the
// IPv4/IPv6 connectivity pair. Returns false if ctx was canceled mid-sleep.
func (s *Scanner) sleepBetweenProbes(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(1 * time.Second):
		return true
	}
}

func (s *Scanner) probeConnectivity(ctx context.Context, base *url.URL) (store.Connectivity, bool) {
	path := s.cfg.Get(common.ConnectivityPathKey).Value()
	probeURL := base.ResolveReference(&url.URL{Path: path}).String()

	_, _, err4 := s.clientIPv4.Fetch(ctx, probeURL, "")
	ok4 := err4 == nil

	if !s.sleepBetweenProbes(ctx) {
		return 0, false
	}

	_, _, err6 := s.clientIPv6.Fetch(ctx, probeURL, "")
	ok6 := err6 == nil

	switch {
	case ok4 && ok6:
		return store.ConnectivityAll, true
	case ok4:
		return store.ConnectivityIPv4, true
	case ok6:
		return store.ConnectivityIPv6, true
	default:
		return 0, false
	}
}

func (s *Scanner) probeRSS(ctx context.Context, base *url.URL) bool {
	path := s.cfg.Get(common.RSSPathKey).Value()
	needle := s.cfg.Get(common.RSSContentKey).Value()
	probeURL := base.ResolveReference(&url.URL{Path: path}).String()

	_, body, err := s.clientDefault.Fetch(ctx, probeURL, "")
	if err != nil {
		return false
	}
	return strings.Contains(body, needle)
}

func (s *Scanner) probeVersion(ctx context.Context, base *url.URL) (profileparser.Version, bool) {
	path := s.cfg.Get(common.AboutPathKey).Value()
	probeURL := base.ResolveReference(&url.URL{Path: path}).String()

	_, body, err := s.clientDefault.Fetch(ctx, probeURL, "")
	if err != nil {
		return profileparser.Version{}, false
	}

	v, err := profileparser.ParseAbout(body)
	if err != nil {
		return profileparser.Version{}, false
	}
	return v, true
}

// logInstanceIssue suppresses info-level noise for a host whose last known
// health check was already unhealthy, when auto_mute is enabled -- a
// flapping or dead instance shouldn't spam the log on every list refresh.
func (s *Scanner) logInstanceIssue(ctx context.Context, host store.Host, msg string, attrs ...any) {
	if !config.AsBool(ctx, s.cfg.Get(common.AutoMuteKey)) {
		slog.WarnContext(ctx, msg, append([]any{"domain", host.Domain}, attrs...)...)
		return
	}

	checks, err := s.store.RecentHealthChecks(ctx, host.ID, 1)
	if err == nil && len(checks) > 0 && !checks[0].Healthy {
		slog.DebugContext(ctx, msg, append([]any{"domain", host.Domain, "muted", true}, attrs...)...)
		return
	}

	slog.WarnContext(ctx, msg, append([]any{"domain", host.Domain}, attrs...)...)
}
