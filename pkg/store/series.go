package store

import "context"

// HealthSeries returns every health_check row for host in [from, to],
// ascending by time, for the graph API.
func (s *Store) HealthSeries(ctx context.Context, host int64, from, to int64) ([]HealthCheck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, healthy, resp_time, response_code FROM health_check
		WHERE host = ? AND time BETWEEN ? AND ?
		ORDER BY time ASC
	`, host, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HealthCheck
	for rows.Next() {
		var hc HealthCheck
		var respTime, code nullInt64Scanner
		hc.Host = host
		if err := rows.Scan(&hc.Time, &hc.Healthy, &respTime, &code); err != nil {
			return nil, err
		}
		hc.RespTime, hc.HasRespTime = respTime.v, respTime.ok
		hc.ResponseCode, hc.HasCode = code.v, code.ok
		out = append(out, hc)
	}
	return out, rows.Err()
}

// StatsSeries returns every instance_stats row for host in [from, to],
// ascending by time, for the graph API.
func (s *Store) StatsSeries(ctx context.Context, host int64, from, to int64) ([]InstanceStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, host, limited_accs, total_accs, total_requests FROM instance_stats
		WHERE host = ? AND time BETWEEN ? AND ?
		ORDER BY time ASC
	`, host, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InstanceStats
	for rows.Next() {
		var st InstanceStats
		if err := rows.Scan(&st.Time, &st.Host, &st.LimitedAccs, &st.TotalAccs, &st.TotalRequests); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type nullInt64Scanner struct {
	v  int64
	ok bool
}

func (n *nullInt64Scanner) Scan(src any) error {
	if src == nil {
		n.v, n.ok = 0, false
		return nil
	}
	switch t := src.(type) {
	case int64:
		n.v, n.ok = t, true
	default:
		n.ok = false
	}
	return nil
}
