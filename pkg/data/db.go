// Package data persists grading runs to SQLite or PostgreSQL.
package data

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DataFileName  string = "data.db"
	schemaVersion int    = 1

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	timeFormat = "2006-01-02T15:04:05.000000Z07:00"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// IsPostgres reports whether the DSN points at a PostgreSQL server.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Init creates the schema in the database at dsn. It is safe to run on an
// existing database.
func Init(dsn string) error {
	if dsn == "" {
		return errors.New("database path not specified")
	}

	if !IsPostgres(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return fmt.Errorf("error creating database directory for %s: %w", dsn, err)
		}
	}

	db, err := GetDB(dsn)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	slog.Debug("creating db schema")
	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		return fmt.Errorf("failed to read the schema creation file: %w", err)
	}
	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	q := rebind(db, `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)
		ON CONFLICT (version) DO NOTHING`)
	if _, err := db.Exec(q, schemaVersion, time.Now().UTC().Format(timeFormat)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	slog.Debug("db schema ready", "version", schemaVersion)

	return nil
}

// GetDB opens the database at dsn without touching the schema.
func GetDB(dsn string) (*sql.DB, error) {
	driver := driverSQLite
	if IsPostgres(dsn) {
		driver = driverPostgres
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == driverSQLite {
		conn.SetMaxOpenConns(1)
	}
	return conn, nil
}

func isPostgres(db *sql.DB) bool {
	_, ok := db.Driver().(*pq.Driver)
	return ok
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func rebind(db *sql.DB, query string) string {
	if !isPostgres(db) {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
