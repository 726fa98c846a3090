package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type DB struct {
	conn *sql.DB
}

// New opens a database. Plain paths open a local SQLite file; libsql://
// URLs open a remote Turso/libsql database through the libsql driver.
func New(databaseURL string) (*DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(databaseURL, "libsql://") || strings.HasPrefix(databaseURL, "wss://") {
		driver = "libsql"
	}

	conn, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == "sqlite" {
		// SQLite allows one writer at a time; WAL plus a busy timeout keeps
		// concurrent claim attempts from surfacing as SQLITE_BUSY.
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		} {
			if _, err := conn.Exec(pragma); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
			}
		}
	}

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate runs embedded migrations
func (db *DB) Migrate() error {
	return RunMigrations(db.conn)
}
