package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// DB is a *sql.DB plus the dialect its queries must be written for.
type DB struct {
	*sql.DB
	Dialect Dialect
	pool    *pgxpool.Pool
}

// ParseDSN picks the driver from the DSN scheme. Anything that is not postgres is a sqlite path.
func ParseDSN(dsn string) (Dialect, string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite://")
	default:
		return DialectSQLite, dsn
	}
}

// Open connects to the database named by cfg.DSN.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialect, dsn := ParseDSN(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	logger.Info("repository.db.connecting", "dialect", dialect)

	if dialect == DialectSQLite {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			logger.Error("repository.db.connect_failed", "error", err)
			return nil, err
		}
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			logger.Error("repository.db.connect_failed", "error", err)
			return nil, err
		}
		return &DB{DB: db, Dialect: dialect}, nil
	}

	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("repository.db.connect_failed", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extractor"

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dctx, pc)
	if err != nil {
		logger.Error("repository.db.connect_failed", "error", err)
		return nil, err
	}
	logger.Info("repository.db.connected", "dialect", dialect)
	return &DB{DB: stdlib.OpenDBFromPool(pool), Dialect: dialect, pool: pool}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close() error {
	err := d.DB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

// HealthCheck pings to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.PingContext(ctx)
}

// rebind rewrites '?' placeholders to the dialect's form.
func (d *DB) rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
