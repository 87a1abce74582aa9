package store

import (
	"context"
	"database/sql"
)

// GetHostOverrides returns every override row configured for host, keyed by
// key. Consulted by the stats sweep (stats_path/stats_query/stats_bearer);
// the ranking builder reads bad_host for all hosts at once through
// AllBadHosts.
func (s *Store) GetHostOverrides(ctx context.Context, host int64) (map[string]HostOverride, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT host, key, locked, value FROM host_override WHERE host = ?`, host)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]HostOverride)
	for rows.Next() {
		var o HostOverride
		var value sql.NullString
		if err := rows.Scan(&o.Host, &o.Key, &o.Locked, &value); err != nil {
			return nil, err
		}
		o.Value, o.HasVal = value.String, value.Valid
		out[o.Key] = o
	}
	return out, rows.Err()
}

// AllBadHosts returns the set of host ids carrying a truthy bad_host
// override, used by the ranking builder in one bulk query rather than one
// round trip per host.
func (s *Store) AllBadHosts(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT host FROM host_override WHERE key = ? AND value = '1'
	`, OverrideBadHost)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// SetHostOverride upserts a single override row. locked overrides are
// reserved for values the scanner itself maintains (not exposed for
// operator editing), mirroring the upstream distinction between scanner
// state and admin-settable configuration.
func (s *Store) SetHostOverride(ctx context.Context, host int64, key string, value string, locked bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO host_override (host, key, value, locked)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (host, key) DO UPDATE SET value = excluded.value, locked = excluded.locked
	`, host, key, value, locked)
	return err
}
