package store

import (
	"context"
	"database/sql"
)

// InsertInstanceStatsBatch bulk-inserts one instance_stats row per entry in
// a single transaction, grounded on the stats sweep gathering every enabled
// host's stats concurrently and persisting them together.
func (s *Store) InsertInstanceStatsBatch(ctx context.Context, entries []InstanceStats) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO instance_stats (time, host, limited_accs, total_accs, total_requests)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Time, e.Host, e.LimitedAccs, e.TotalAccs, e.TotalRequests); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// QueryLatestCheck returns the most recent health_check row per enabled
// host, keyed by host id.
func (s *Store) QueryLatestCheck(ctx context.Context) (map[int64]LatestCheck, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH latest AS (
			SELECT host, MAX(time) AS time FROM health_check GROUP BY host
		)
		SELECT hc.host, hc.healthy, hc.time
		FROM health_check hc
		JOIN latest ON latest.host = hc.host AND latest.time = hc.time
		JOIN host h ON h.id = hc.host
		WHERE h.enabled = 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]LatestCheck)
	for rows.Next() {
		var id int64
		var lc LatestCheck
		if err := rows.Scan(&id, &lc.Healthy, &lc.Time); err != nil {
			return nil, err
		}
		out[id] = lc
	}
	return out, rows.Err()
}

// QueryStatsRange returns the good/total health_check counts per enabled
// host within [from, to].
func (s *Store) QueryStatsRange(ctx context.Context, from, to int64) (map[int64]HostStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hc.host, COUNT(CASE WHEN hc.healthy THEN 1 END), COUNT(*)
		FROM health_check hc
		JOIN host h ON h.id = hc.host
		WHERE h.enabled = 1 AND hc.time BETWEEN ? AND ?
		GROUP BY hc.host
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]HostStats)
	for rows.Next() {
		var id int64
		var hs HostStats
		if err := rows.Scan(&id, &hs.Good, &hs.Total); err != nil {
			return nil, err
		}
		out[id] = hs
	}
	return out, rows.Err()
}

// QueryLastHealthy returns the timestamp of the last healthy health_check
// per enabled host, keyed by host id. A host with no healthy check ever is
// absent from the map.
func (s *Store) QueryLastHealthy(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hc.host, MAX(hc.time)
		FROM health_check hc
		JOIN host h ON h.id = hc.host
		WHERE h.enabled = 1 AND hc.healthy = 1
		GROUP BY hc.host
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var id int64
		var t int64
		if err := rows.Scan(&id, &t); err != nil {
			return nil, err
		}
		out[id] = t
	}
	return out, rows.Err()
}

// QueryHealthyPercentageOverall returns, per enabled host, round(100 *
// avg(healthy)) across that host's entire health_check history.
func (s *Store) QueryHealthyPercentageOverall(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hc.host, CAST(ROUND(100.0 * COUNT(CASE WHEN hc.healthy THEN 1 END) / COUNT(*)) AS INTEGER)
		FROM health_check hc
		JOIN host h ON h.id = hc.host
		WHERE h.enabled = 1
		GROUP BY hc.host
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var id, pct int64
		if err := rows.Scan(&id, &pct); err != nil {
			return nil, err
		}
		out[id] = pct
	}
	return out, rows.Err()
}

// QueryVersionPoints assigns each distinct version seen on an enabled host
// since since an ascending alphabetical popularity score in (0, 1], where
// the highest-sorting version scores 1.0. Mirrors rank(version)/count.
func (s *Store) QueryVersionPoints(ctx context.Context, since int64) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT h.version
		FROM host h
		JOIN health_check hc ON hc.host = h.id
		WHERE h.enabled = 1 AND hc.time >= ? AND h.version IS NOT NULL
		ORDER BY h.version ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(versions))
	count := len(versions)
	if count == 0 {
		return out, nil
	}
	pointsPerLevel := 1.0 / float64(count)
	for i, v := range versions {
		out[v] = float64(i+1) * pointsPerLevel
	}
	return out, nil
}

// QueryPings returns the response-time rollup per enabled host over
// health_check rows since since, in chronological order. Implemented as a
// single pass over one ordered query, deliberately avoiding the original
// off-by-one in the non-null-entry counter: the running average is only
// ever derived from a correctly incremented count.
func (s *Store) QueryPings(ctx context.Context, since int64) (map[int64]LastPings, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hc.host, CASE WHEN hc.healthy THEN hc.resp_time ELSE NULL END
		FROM health_check hc
		JOIN host h ON h.id = hc.host
		WHERE h.enabled = 1 AND hc.time >= ?
		ORDER BY hc.host ASC, hc.time ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]LastPings)

	var curHost int64
	var haveHost bool
	var pings []*int64
	var sum int64
	var count int64
	var min, max int64
	var haveMinMax bool

	flush := func() {
		if !haveHost {
			return
		}
		lp := LastPings{Pings: pings}
		if count > 0 {
			lp.Avg = sum / count
			lp.HasAvg = true
			lp.Min = min
			lp.Max = max
		}
		out[curHost] = lp
	}

	for rows.Next() {
		var host int64
		var ping sql.NullInt64
		if err := rows.Scan(&host, &ping); err != nil {
			return nil, err
		}

		if haveHost && host != curHost {
			flush()
			pings = nil
			sum, count = 0, 0
			haveMinMax = false
		}
		curHost = host
		haveHost = true

		if ping.Valid {
			v := ping.Int64
			pings = append(pings, &v)
			sum += v
			count++
			if !haveMinMax {
				min, max = v, v
				haveMinMax = true
			} else {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
			}
		} else {
			pings = append(pings, nil)
		}
	}
	flush()

	return out, rows.Err()
}
