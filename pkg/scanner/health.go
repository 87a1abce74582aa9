package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/profileparser"
	"github.com/0xpr03/nitter-status/pkg/store"
	"golang.org/x/sync/errgroup"
)

// healthSweep probes every enabled host's profile page, validates the
// expected handle and minimum post count, and records a health_check row
// (plus a check_error row on any failure) per host, in parallel.
func (s *Scanner) healthSweep(ctx context.Context) error {
	hosts, err := s.store.ListEnabledHosts(ctx)
	if err != nil {
		return err
	}

	var g errgroup.Group
	for _, h := range hosts {
		h := h
		g.Go(func() error {
			s.checkHost(ctx, h)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scanner) checkHost(ctx context.Context, host store.Host) {
	base, err := url.Parse(host.URL)
	if err != nil || len(base.Host) == 0 {
		s.recordFailure(ctx, host.ID, time.Now(), 0, false, "Not a valid URL", 0, false, "", false)
		return
	}

	path := s.cfg.Get(common.ProfilePathKey).Value()
	probeURL := base.ResolveReference(&url.URL{Path: path}).String()

	start := time.Now()
	code, body, err := s.clientDefault.Fetch(ctx, probeURL, "")
	respTime := time.Since(start).Milliseconds()

	if err != nil {
		// response_code on the health_check row reflects whatever status the
		// server actually sent (when any); http_status on the check_error
		// row is narrower, carried only for the error kinds the fetcher
		// classifies as status-bearing (captcha/transport/body-read errors
		// leave it null per §8.2).
		message, errStatus, hasErrStatus, errBody, hasBody := hostError(err)
		s.metrics.ObserveFetchOutcome(host.Domain, "error")
		s.recordFailure(ctx, host.ID, time.Now(), int64(code), code != 0, message,
			errStatus, hasErrStatus, errBody, hasBody)
		return
	}

	profile, err := profileparser.ParseProfile(body)
	if err != nil {
		s.metrics.ObserveFetchOutcome(host.Domain, "profile_mismatch")
		s.recordFailure(ctx, host.ID, time.Now(), int64(code), true,
			fmt.Sprintf("profile content mismatch: %v", err), int64(code), true, body, true)
		return
	}

	expectedName := s.cfg.Get(common.ProfileNameKey).Value()
	minPosts := s.configProfilePostsMin(ctx)

	if profile.Handle != expectedName || profile.PostCount < minPosts {
		s.metrics.ObserveFetchOutcome(host.Domain, "profile_mismatch")
		s.recordFailure(ctx, host.ID, time.Now(), int64(code), true,
			fmt.Sprintf("profile content mismatch: got handle %q with %d posts, expected %q with >= %d posts",
				profile.Handle, profile.PostCount, expectedName, minPosts), int64(code), true, body, true)
		return
	}

	s.metrics.ObserveFetchOutcome(host.Domain, "ok")
	if err := s.store.InsertHealthCheck(ctx, store.HealthCheck{
		Host: host.ID, Time: time.Now().Unix(), Healthy: true,
		RespTime: respTime, HasRespTime: true,
		ResponseCode: int64(code), HasCode: true,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to insert health check", "host", host.Domain, common.ErrAttr(err))
	}
}

func (s *Scanner) configProfilePostsMin(ctx context.Context) int {
	v, err := strconv.Atoi(s.cfg.Get(common.ProfilePostsMinKey).Value())
	if err != nil {
		return 0
	}
	return v
}

func (s *Scanner) recordFailure(ctx context.Context, hostID int64, t time.Time, code int64, hasCode bool, message string,
	errStatus int64, hasErrStatus bool, body string, hasBody bool) {
	if err := s.store.InsertHealthCheck(ctx, store.HealthCheck{
		Host: hostID, Time: t.Unix(), Healthy: false,
		ResponseCode: code, HasCode: hasCode,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to insert health check", "host", hostID, common.ErrAttr(err))
	}
	if err := s.store.InsertCheckError(ctx, store.CheckError{
		Host: hostID, Time: t.Unix(), Message: message,
		HTTPBody: body, HasBody: hasBody,
		HTTPStatus: errStatus, HasStatus: hasErrStatus,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to insert check error", "host", hostID, common.ErrAttr(err))
	}
}
