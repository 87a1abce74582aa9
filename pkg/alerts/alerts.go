// Package alerts evaluates per-host alert rules against stored health and
// stats history and sends rate-limited notification mails.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/config"
	"github.com/0xpr03/nitter-status/pkg/email"
	"github.com/0xpr03/nitter-status/pkg/monitoring"
	"github.com/0xpr03/nitter-status/pkg/store"
)

// Bounds enforced on operator-submitted alert configuration.
const (
	MaxAliveAccsMinPercent   = 50
	MaxAliveAccsMinThreshold = 10000
	MinAvgAccountAgeDays     = 20
	MinHostDownAmount        = 3
)

const mailKindAlert = "alert"

// Evaluator runs every configured alert rule across the fleet and sends
// throttled notification mails for the ones that trip.
type Evaluator struct {
	store   *store.Store
	mailer  email.Sender
	cfg     common.ConfigStore
	metrics *monitoring.Service
}

func NewEvaluator(s *store.Store, mailer email.Sender, cfg common.ConfigStore, metrics *monitoring.Service) *Evaluator {
	return &Evaluator{store: s, mailer: mailer, cfg: cfg, metrics: metrics}
}

// ValidateConfig enforces the fixed bounds on every enabled alert rule; the
// threshold of a disabled rule is not checked.
func ValidateConfig(cfg store.AlertConfig) error {
	if cfg.HostDownAmountEnable && cfg.HostDownAmount < MinHostDownAmount {
		return fmt.Errorf("host_down_amount must be >= %d", MinHostDownAmount)
	}
	if cfg.AliveAccsMinThresholdEnable && cfg.AliveAccsMinThreshold > MaxAliveAccsMinThreshold {
		return fmt.Errorf("alive_accs_min_threshold must be <= %d", MaxAliveAccsMinThreshold)
	}
	if cfg.AliveAccsMinPercentEnable && (cfg.AliveAccsMinPercent < 0 || cfg.AliveAccsMinPercent > MaxAliveAccsMinPercent) {
		return fmt.Errorf("alive_accs_min_percent must be within [0, %d]", MaxAliveAccsMinPercent)
	}
	if cfg.AvgAccountAgeDaysEnable && cfg.AvgAccountAgeDays < MinAvgAccountAgeDays {
		return fmt.Errorf("avg_account_age_days must be >= %d", MinAvgAccountAgeDays)
	}
	return nil
}

// finding is one triggered rule's human-readable message, keyed by rule name
// for metrics.
type finding struct {
	rule    string
	message string
}

func checkHostDown(checks []store.HealthCheck, cfg store.AlertConfig, domain string) (finding, bool) {
	if !cfg.HostDownAmountEnable {
		return finding{}, false
	}

	var failed int64
	for _, c := range checks {
		if !c.Healthy {
			failed++
		}
	}
	if failed < cfg.HostDownAmount {
		return finding{}, false
	}

	return finding{
		rule:    "host_down",
		message: fmt.Sprintf("%s: %d of the last %d health checks failed in succession. Threshold is %d.", domain, failed, len(checks), cfg.HostDownAmount),
	}, true
}

func checkMinAliveAccounts(stats store.InstanceStats, cfg store.AlertConfig, domain string) (finding, bool) {
	if !cfg.AliveAccsMinThresholdEnable {
		return finding{}, false
	}

	unlimited := stats.TotalAccs - stats.LimitedAccs
	if unlimited >= cfg.AliveAccsMinThreshold {
		return finding{}, false
	}

	return finding{
		rule:    "min_alive_accounts",
		message: fmt.Sprintf("%s: usable accounts at %d from %d total. Threshold is %d unlimited accounts.", domain, unlimited, stats.TotalAccs, cfg.AliveAccsMinThreshold),
	}, true
}

// checkMinAlivePercent is guarded against stats.TotalAccs == 0, unlike the
// formula it's derived from: dividing by a zero account total there would
// panic every time a host reports no accounts at all.
func checkMinAlivePercent(stats store.InstanceStats, cfg store.AlertConfig, domain string) (finding, bool) {
	if !cfg.AliveAccsMinPercentEnable {
		return finding{}, false
	}
	if stats.TotalAccs == 0 {
		return finding{}, false
	}

	limitedPercent := stats.LimitedAccs * 100 / stats.TotalAccs
	if limitedPercent >= cfg.AliveAccsMinPercent {
		return finding{}, false
	}

	return finding{
		rule:    "min_alive_percent",
		message: fmt.Sprintf("%s: limited accounts at %d%%. Threshold is %d%%.", domain, limitedPercent, cfg.AliveAccsMinPercent),
	}, true
}

// checkAvgAccountAge compares the absolute difference between now and the
// host's reported average account age against the configured threshold, so
// it fires whether the fleet's accounts got unexpectedly younger (fresh
// burner accounts cycling in) or older than expected.
func checkAvgAccountAge(host store.Host, cfg store.AlertConfig, now time.Time) (finding, bool) {
	if !cfg.AvgAccountAgeDaysEnable || !host.HasAccountAge {
		return finding{}, false
	}

	avgAge := time.Unix(host.AccountAgeAverage, 0)
	diff := now.Sub(avgAge)
	if diff < 0 {
		diff = -diff
	}
	threshold := time.Duration(cfg.AvgAccountAgeDays) * 24 * time.Hour
	if diff < threshold {
		return finding{}, false
	}

	return finding{
		rule:    "avg_account_age",
		message: fmt.Sprintf("%s: average account age differs from expectation by %s, threshold is %d days.", host.Domain, diff.Round(time.Hour), cfg.AvgAccountAgeDays),
	}, true
}

// Run evaluates every configured host's alert rules once and sends mail for
// any host with at least one triggered rule and a due mail binding.
func (e *Evaluator) Run(ctx context.Context) error {
	configs, err := e.store.ListAlertConfigs(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	timeout := config.AsSeconds(ctx, e.cfg.Get(common.MailAlertTimeoutSecondsKey), time.Hour)
	disabled := config.AsBool(ctx, e.cfg.Get(common.DisableAlertMailsKey))

	for hostID, cfg := range configs {
		if err := e.evaluateHost(ctx, hostID, cfg, now, timeout, disabled); err != nil {
			slog.ErrorContext(ctx, "alert evaluation failed for host", "host", hostID, common.ErrAttr(err))
			e.metrics.ObserveSweepFailure("alerts")
		}
	}

	return nil
}

func (e *Evaluator) evaluateHost(ctx context.Context, hostID int64, cfg store.AlertConfig, now time.Time, timeout time.Duration, disabled bool) error {
	host, err := e.store.GetHost(ctx, hostID)
	if err != nil {
		return err
	}

	var findings []finding

	checks, err := e.store.RecentHealthChecks(ctx, hostID, 3)
	if err != nil {
		return err
	}
	if f, ok := checkHostDown(checks, cfg, host.Domain); ok {
		findings = append(findings, f)
	}

	if f, ok := checkAvgAccountAge(host, cfg, now); ok {
		findings = append(findings, f)
	}

	if stats, ok, err := e.store.LatestInstanceStats(ctx, hostID); err != nil {
		return err
	} else if ok {
		if f, ok := checkMinAliveAccounts(stats, cfg, host.Domain); ok {
			findings = append(findings, f)
		}
		if f, ok := checkMinAlivePercent(stats, cfg, host.Domain); ok {
			findings = append(findings, f)
		}
	}

	if len(findings) == 0 {
		return nil
	}

	mails, err := e.store.ListMailsForHost(ctx, hostID)
	if err != nil {
		return err
	}

	for _, m := range mails {
		if !m.Verified {
			continue
		}
		if err := e.notify(ctx, m, findings, timeout, disabled); err != nil {
			slog.ErrorContext(ctx, "failed to send alert mail", "mail", m.Email, common.ErrAttr(err))
		}
	}

	return nil
}

func (e *Evaluator) notify(ctx context.Context, m store.Mail, findings []finding, timeout time.Duration, disabled bool) error {
	canSend, err := e.store.CanSendMail(ctx, m.ID, mailKindAlert, timeout)
	if err != nil {
		return err
	}
	if !canSend {
		slog.DebugContext(ctx, "still within alert mail timeout, skipping", "mail", m.Email)
		return nil
	}

	body := ""
	for i, f := range findings {
		if i > 0 {
			body += "\n"
		}
		body += f.message
	}

	if disabled {
		slog.InfoContext(ctx, "alert mails disabled, logging instead", "mail", m.Email, "body", body)
		return nil
	}

	msg := &email.Message{
		EmailTo:   m.Email,
		EmailFrom: e.cfg.Get(common.EmailFromKey).Value(),
		Subject:   "nitter-status alert",
		TextBody:  body,
	}
	if err := e.mailer.SendEmail(ctx, msg); err != nil {
		return err
	}

	for _, f := range findings {
		e.metrics.ObserveAlertSent(f.rule)
	}

	return e.store.RecordMailSend(ctx, m.ID, mailKindAlert, time.Now())
}
