// Package store persists the scanner's findings in SQLite: host inventory,
// health/stats time series, alert configuration and mail throttling, and
// per-host overrides consulted by the scanner and ranking builder.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/0xpr03/nitter-status/pkg/common"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection pool used by every other package.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at path and applies every pending
// migration. path is passed straight to modernc.org/sqlite, so DSN query
// parameters (e.g. "file:x.db?_pragma=busy_timeout(5000)") are supported.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// SQLite only profits from a single writer; a wide open pool just
	// produces SQLITE_BUSY under concurrent scanner/API access.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	if err := Migrate(ctx, db, true); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for the rare caller (the readiness probe's
// ping) that needs it directly.
func (s *Store) DB() *sql.DB {
	return s.db
}

func nullInt(v int64, ok bool) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: ok}
}

func nullStr(v string, ok bool) sql.NullString {
	return sql.NullString{String: v, Valid: ok}
}

func scanHost(row interface {
	Scan(dest ...any) error
}) (Host, error) {
	var h Host
	var version, versionURL, country sql.NullString
	var connectivity, accountAge sql.NullInt64

	err := row.Scan(&h.ID, &h.Domain, &h.URL, &h.Enabled, &h.RSS, &version, &versionURL,
		&country, &connectivity, &accountAge, &h.Updated)
	if err != nil {
		return Host{}, err
	}

	h.Version, h.HasVersion = version.String, version.Valid
	h.VersionURL, h.HasVersionURL = versionURL.String, versionURL.Valid
	h.Country = country.String
	h.HasConnectivity = connectivity.Valid
	h.Connectivity = Connectivity(connectivity.Int64)
	h.AccountAgeAverage, h.HasAccountAge = accountAge.Int64, accountAge.Valid

	return h, nil
}

const hostColumns = `id, domain, url, enabled, rss, version, version_url, country, connectivity, account_age_average, updated`

// ListEnabledHosts returns every enabled host, ordered by id ascending.
func (s *Store) ListEnabledHosts(ctx context.Context) ([]Host, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+hostColumns+` FROM host WHERE enabled = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hosts []Host
	for rows.Next() {
		h, err := scanHost(rows)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// ListAllHosts returns every host regardless of enabled state, used by the
// cleanup job which doesn't care whether a host is currently tracked.
func (s *Store) ListAllHosts(ctx context.Context) ([]Host, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+hostColumns+` FROM host ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hosts []Host
	for rows.Next() {
		h, err := scanHost(rows)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// GetHost fetches a single host by id.
func (s *Store) GetHost(ctx context.Context, id int64) (Host, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+hostColumns+` FROM host WHERE id = ?`, id)
	return scanHost(row)
}

// GetHostByDomain fetches a single host by its domain, used by the graph API
// to resolve a path parameter into a host id.
func (s *Store) GetHostByDomain(ctx context.Context, domain string) (Host, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+hostColumns+` FROM host WHERE domain = ?`, domain)
	return scanHost(row)
}

// UpsertHost inserts a new host or updates an existing one keyed by domain,
// as part of the list-refresh sweep. It does not touch rss/version/
// version_url/connectivity; those are set by UpdateHostProbeResult once the
// per-host connectivity probe completes.
func (s *Store) UpsertHost(ctx context.Context, domain, url, country string, updated int64) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO host (domain, url, enabled, country, updated)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (domain) DO UPDATE SET
			url = excluded.url,
			enabled = 1,
			country = excluded.country,
			updated = excluded.updated
	`, domain, url, country, updated)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM host WHERE domain = ?`, domain).Scan(&id)
	return id, err
}

// DisableStaleHosts marks every host whose domain is absent from seen as
// disabled, stamping updated. It never deletes a host: history (health
// checks, stats, alert config) is preserved in case the host reappears.
func (s *Store) DisableStaleHosts(ctx context.Context, seen map[string]struct{}, updated int64) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, domain FROM host WHERE enabled = 1`)
	if err != nil {
		return err
	}

	type idDomain struct {
		id     int64
		domain string
	}
	var stale []idDomain
	for rows.Next() {
		var d idDomain
		if err := rows.Scan(&d.id, &d.domain); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[d.domain]; !ok {
			stale = append(stale, d)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, d := range stale {
		if _, err := s.db.ExecContext(ctx, `UPDATE host SET enabled = 0, updated = ? WHERE id = ?`, updated, d.id); err != nil {
			return err
		}
	}
	return nil
}

// ProbeResult is the outcome of a single list-refresh connectivity probe.
type ProbeResult struct {
	RSS          bool
	Version      string
	HasVersion   bool
	VersionURL   string
	HasVersionURL bool
	Connectivity Connectivity
	HasConn      bool
}

// UpdateHostProbeResult writes the per-host connectivity/rss/version probe
// results gathered during list refresh.
func (s *Store) UpdateHostProbeResult(ctx context.Context, hostID int64, r ProbeResult) error {
	var conn sql.NullInt64
	if r.HasConn {
		conn = nullInt(int64(r.Connectivity), true)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE host SET rss = ?, version = ?, version_url = ?, connectivity = ?
		WHERE id = ?
	`, r.RSS, nullStr(r.Version, r.HasVersion), nullStr(r.VersionURL, r.HasVersionURL), conn, hostID)
	return err
}

// UpdateAccountAgeAverage records the best-effort account-age signal
// gathered by the stats sweep.
func (s *Store) UpdateAccountAgeAverage(ctx context.Context, hostID int64, avg int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE host SET account_age_average = ? WHERE id = ?`, avg, hostID)
	return err
}

// InsertLog appends a row to the persisted operator log; a failed insert is
// logged through slog, not returned.
func (s *Store) InsertLog(ctx context.Context, t int64, level, message string) {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO log (time, level, message) VALUES (?, ?, ?)`, t, level, message); err != nil {
		slog.ErrorContext(ctx, "failed to persist log row", common.ErrAttr(err))
	}
}
