package store

import (
	"context"
	"database/sql"
	"time"
)

func nullIfZeroAndDisabled(v int64, enable bool) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: enable}
}

// GetAlertConfig returns the alert configuration for host, and whether a row
// existed. A missing row is equivalent to every rule disabled.
func (s *Store) GetAlertConfig(ctx context.Context, host int64) (AlertConfig, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT host, host_down_amount, host_down_amount_enable,
			alive_accs_min_threshold, alive_accs_min_threshold_enable,
			alive_accs_min_percent, alive_accs_min_percent_enable,
			avg_account_age_days, avg_account_age_days_enable
		FROM instance_alert_config WHERE host = ?
	`, host)

	var cfg AlertConfig
	var hostDown, minThreshold, minPercent, avgAge sql.NullInt64
	err := row.Scan(&cfg.Host, &hostDown, &cfg.HostDownAmountEnable,
		&minThreshold, &cfg.AliveAccsMinThresholdEnable,
		&minPercent, &cfg.AliveAccsMinPercentEnable,
		&avgAge, &cfg.AvgAccountAgeDaysEnable)
	if err == sql.ErrNoRows {
		return AlertConfig{Host: host}, false, nil
	}
	if err != nil {
		return AlertConfig{}, false, err
	}

	cfg.HostDownAmount = hostDown.Int64
	cfg.AliveAccsMinThreshold = minThreshold.Int64
	cfg.AliveAccsMinPercent = minPercent.Int64
	cfg.AvgAccountAgeDays = avgAge.Int64
	return cfg, true, nil
}

// ListAlertConfigs returns every configured alert row, keyed by host id.
func (s *Store) ListAlertConfigs(ctx context.Context) (map[int64]AlertConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT host, host_down_amount, host_down_amount_enable,
			alive_accs_min_threshold, alive_accs_min_threshold_enable,
			alive_accs_min_percent, alive_accs_min_percent_enable,
			avg_account_age_days, avg_account_age_days_enable
		FROM instance_alert_config
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]AlertConfig)
	for rows.Next() {
		var cfg AlertConfig
		var hostDown, minThreshold, minPercent, avgAge sql.NullInt64
		if err := rows.Scan(&cfg.Host, &hostDown, &cfg.HostDownAmountEnable,
			&minThreshold, &cfg.AliveAccsMinThresholdEnable,
			&minPercent, &cfg.AliveAccsMinPercentEnable,
			&avgAge, &cfg.AvgAccountAgeDaysEnable); err != nil {
			return nil, err
		}
		cfg.HostDownAmount = hostDown.Int64
		cfg.AliveAccsMinThreshold = minThreshold.Int64
		cfg.AliveAccsMinPercent = minPercent.Int64
		cfg.AvgAccountAgeDays = avgAge.Int64
		out[cfg.Host] = cfg
	}
	return out, rows.Err()
}

// UpsertAlertConfig writes the validated alert configuration for a host.
// Bounds enforcement lives in pkg/alerts; this just persists whatever it's
// given.
func (s *Store) UpsertAlertConfig(ctx context.Context, cfg AlertConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instance_alert_config (host, host_down_amount, host_down_amount_enable,
			alive_accs_min_threshold, alive_accs_min_threshold_enable,
			alive_accs_min_percent, alive_accs_min_percent_enable,
			avg_account_age_days, avg_account_age_days_enable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (host) DO UPDATE SET
			host_down_amount = excluded.host_down_amount,
			host_down_amount_enable = excluded.host_down_amount_enable,
			alive_accs_min_threshold = excluded.alive_accs_min_threshold,
			alive_accs_min_threshold_enable = excluded.alive_accs_min_threshold_enable,
			alive_accs_min_percent = excluded.alive_accs_min_percent,
			alive_accs_min_percent_enable = excluded.alive_accs_min_percent_enable,
			avg_account_age_days = excluded.avg_account_age_days,
			avg_account_age_days_enable = excluded.avg_account_age_days_enable
	`, cfg.Host,
		nullIfZeroAndDisabled(cfg.HostDownAmount, cfg.HostDownAmountEnable), cfg.HostDownAmountEnable,
		nullIfZeroAndDisabled(cfg.AliveAccsMinThreshold, cfg.AliveAccsMinThresholdEnable), cfg.AliveAccsMinThresholdEnable,
		nullIfZeroAndDisabled(cfg.AliveAccsMinPercent, cfg.AliveAccsMinPercentEnable), cfg.AliveAccsMinPercentEnable,
		nullIfZeroAndDisabled(cfg.AvgAccountAgeDays, cfg.AvgAccountAgeDaysEnable), cfg.AvgAccountAgeDaysEnable)
	return err
}

// LatestInstanceStats returns the most recent instance_stats row for host,
// if any.
func (s *Store) LatestInstanceStats(ctx context.Context, host int64) (InstanceStats, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT time, host, limited_accs, total_accs, total_requests
		FROM instance_stats WHERE host = ? ORDER BY time DESC LIMIT 1
	`, host)

	var st InstanceStats
	err := row.Scan(&st.Time, &st.Host, &st.LimitedAccs, &st.TotalAccs, &st.TotalRequests)
	if err == sql.ErrNoRows {
		return InstanceStats{}, false, nil
	}
	return st, err == nil, err
}

// ListMailsForHost returns every notification address bound to host.
func (s *Store) ListMailsForHost(ctx context.Context, host int64) ([]Mail, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, host, email, verified FROM instance_mail WHERE host = ?`, host)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Mail
	for rows.Next() {
		var m Mail
		if err := rows.Scan(&m.ID, &m.Host, &m.Email, &m.Verified); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListVerifiedMails returns every verified mail binding across all hosts.
func (s *Store) ListVerifiedMails(ctx context.Context) ([]Mail, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, host, email, verified FROM instance_mail WHERE verified = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Mail
	for rows.Next() {
		var m Mail
		if err := rows.Scan(&m.ID, &m.Host, &m.Email, &m.Verified); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CanSendMail reports whether enough time has passed since the last mail of
// kind was sent to mail, per the rate-limit timeout.
func (s *Store) CanSendMail(ctx context.Context, mail int64, kind string, timeout time.Duration) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT time FROM last_mail_send WHERE mail = ? AND kind = ?`, mail, kind)

	var last int64
	err := row.Scan(&last)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return time.Since(time.Unix(last, 0)) >= timeout, nil
}

// RecordMailSend upserts the last-sent timestamp for (mail, kind), called
// immediately after a successful send so the rate limiter sees it on the
// next evaluation.
func (s *Store) RecordMailSend(ctx context.Context, mail int64, kind string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_mail_send (mail, kind, time) VALUES (?, ?, ?)
		ON CONFLICT (mail, kind) DO UPDATE SET time = excluded.time
	`, mail, kind, at.Unix())
	return err
}
