package store

import (
	"context"
	"database/sql"
)

// InsertHealthCheck appends one health_check row.
func (s *Store) InsertHealthCheck(ctx context.Context, hc HealthCheck) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO health_check (time, host, healthy, resp_time, response_code)
		VALUES (?, ?, ?, ?, ?)
	`, hc.Time, hc.Host, hc.Healthy, nullInt(hc.RespTime, hc.HasRespTime), nullInt(hc.ResponseCode, hc.HasCode))
	return err
}

// InsertCheckError appends one check_error row, retaining the HTTP body and
// status only when the caller has them (suppressed for known/expected
// failure modes, kept for unrecognized statuses per §4.1).
func (s *Store) InsertCheckError(ctx context.Context, ce CheckError) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO check_error (host, time, message, http_body, http_status)
		VALUES (?, ?, ?, ?, ?)
	`, ce.Host, ce.Time, ce.Message, nullStr(ce.HTTPBody, ce.HasBody), nullInt(ce.HTTPStatus, ce.HasStatus))
	return err
}

// RecentHealthChecks returns up to limit most recent health_check rows for
// host, newest first. Used by the host-down-streak alert rule (limit 3) and
// the ranked snapshot's recent_checks display (limit 22, reversed to
// ascending by the caller).
func (s *Store) RecentHealthChecks(ctx context.Context, host int64, limit int) ([]HealthCheck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, healthy, resp_time, response_code FROM health_check
		WHERE host = ? ORDER BY time DESC LIMIT ?
	`, host, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HealthCheck
	for rows.Next() {
		var hc HealthCheck
		var respTime, code sql.NullInt64
		hc.Host = host
		if err := rows.Scan(&hc.Time, &hc.Healthy, &respTime, &code); err != nil {
			return nil, err
		}
		hc.RespTime, hc.HasRespTime = respTime.Int64, respTime.Valid
		hc.ResponseCode, hc.HasCode = code.Int64, code.Valid
		out = append(out, hc)
	}
	return out, rows.Err()
}

// CleanupCheckErrors deletes every check_error row for each host beyond the
// retainPerHost most recent, returning the total number of rows removed.
// Grounded on a single bounded DELETE per host rather than an open-ended
// chunked scan, since the retained count is fixed and small.
func (s *Store) CleanupCheckErrors(ctx context.Context, retainPerHost int) (int64, error) {
	hosts, err := s.ListAllHosts(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, h := range hosts {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM check_error
			WHERE host = ? AND time NOT IN (
				SELECT time FROM check_error WHERE host = ? ORDER BY time DESC LIMIT ?
			)
		`, h.ID, h.ID, retainPerHost)
		if err != nil {
			return deleted, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}
