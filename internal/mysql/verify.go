// Package mysql checks the local database after an import.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/vbp1/datafetch/internal/dbconn"
)

// DSN builds a go-sql-driver DSN for d.
func DSN(d dbconn.Descriptor) string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	if d.Socket != "" {
		cfg.Net = "unix"
	}
	cfg.Addr = d.Addr()
	cfg.DBName = d.Database
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

// CountTables returns the number of base tables in schema.
func CountTables(ctx context.Context, db *sql.DB, schema string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE'",
		schema).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tables in %s: %w", schema, err)
	}
	return n, nil
}

// Verifier connects to the imported database and makes sure it holds tables.
type Verifier struct {
	// Open defaults to sql.Open("mysql", dsn).
	Open func(dsn string) (*sql.DB, error)
}

// Verify returns the table count of d's schema. An empty schema is an error.
func (v Verifier) Verify(ctx context.Context, d dbconn.Descriptor) (int, error) {
	open := v.Open
	if open == nil {
		open = func(dsn string) (*sql.DB, error) { return sql.Open("mysql", dsn) }
	}
	db, err := open(DSN(d))
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", d.Addr(), err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("connect %s: %w", d.Addr(), err)
	}
	n, err := CountTables(ctx, db, d.Database)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("database %s has no tables after import", d.Database)
	}
	return n, nil
}
