package store

import (
	"database/sql"
	"fmt"
	"io"
	"sync"

	"github.com/golang-migrate/migrate/v4/database"
)

// sqliteDriver is a minimal golang-migrate database.Driver for modernc.org/sqlite.
//
// golang-migrate ships its own "sqlite3" driver package, but that package
// imports github.com/mattn/go-sqlite3 to register the driver, which pulls in
// cgo. Since this project runs on the pure-Go modernc.org/sqlite driver, the
// migration runner talks to an already-open *sql.DB through this adapter
// instead, following the same migrations-table/dirty-flag contract as
// upstream's driver.
type sqliteDriver struct {
	db         *sql.DB
	mu         sync.Mutex
	migrations string
}

const defaultMigrationsTable = "schema_migrations"

func newSQLiteDriver(db *sql.DB) (database.Driver, error) {
	d := &sqliteDriver{db: db, migrations: defaultMigrationsTable}
	if err := d.ensureVersionTable(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *sqliteDriver) ensureVersionTable() error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (version INTEGER NOT NULL PRIMARY KEY, dirty BOOL NOT NULL) STRICT`, d.migrations)
	_, err := d.db.Exec(query)
	return err
}

func (d *sqliteDriver) Open(url string) (database.Driver, error) {
	return nil, fmt.Errorf("sqliteDriver must be constructed via newSQLiteDriver, not Open(%q)", url)
}

func (d *sqliteDriver) Close() error {
	return nil // the *sql.DB is owned by the caller
}

func (d *sqliteDriver) Lock() error {
	d.mu.Lock()
	return nil
}

func (d *sqliteDriver) Unlock() error {
	d.mu.Unlock()
	return nil
}

func (d *sqliteDriver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(string(body)); err != nil {
		tx.Rollback()
		return database.Error{OrigErr: err, Err: "migration failed", Query: body}
	}
	return tx.Commit()
}

func (d *sqliteDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, d.migrations)); err != nil {
		tx.Rollback()
		return err
	}
	if version >= 0 {
		if _, err := tx.Exec(fmt.Sprintf(`INSERT INTO %s (version, dirty) VALUES (?, ?)`, d.migrations), version, dirty); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (d *sqliteDriver) Version() (version int, dirty bool, err error) {
	query := fmt.Sprintf(`SELECT version, dirty FROM %s LIMIT 1`, d.migrations)
	row := d.db.QueryRow(query)
	err = row.Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return database.NilVersion, false, nil
	}
	return version, dirty, err
}

func (d *sqliteDriver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name != "sqlite_sequence" {
			tables = append(tables, name)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range tables {
		if _, err := d.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, name)); err != nil {
			return err
		}
	}
	return d.ensureVersionTable()
}
