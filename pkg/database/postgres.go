package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/sma-records/pkg/config"
)

// Source names the two record databases.
type Source string

const (
	// SourceLegacy is the mainframe-era schema.
	SourceLegacy Source = "legacy"
	// SourceODS is the operational data store mirror.
	SourceODS Source = "ods"
)

const connectTimeout = 10 * time.Second

// DSN renders cfg as a lib/pq connection URL. Credentials are escaped.
func DSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	q.Set("connect_timeout", strconv.Itoa(int(connectTimeout/time.Second)))
	u.RawQuery = q.Encode()
	return u.String()
}

// NewPostgres opens a pool for cfg and verifies it with a ping bounded by ctx.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects both record sources. The legacy pool is closed again when
// the ODS mirror cannot be reached.
func Open(ctx context.Context, cfg *config.Config) (map[Source]*sqlx.DB, error) {
	legacy, err := NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", SourceLegacy, err)
	}
	ods, err := NewPostgres(ctx, cfg.ODS)
	if err != nil {
		_ = legacy.Close()
		return nil, fmt.Errorf("connect %s: %w", SourceODS, err)
	}
	return map[Source]*sqlx.DB{SourceLegacy: legacy, SourceODS: ods}, nil
}

// Ping checks every source and reports the failures by source.
func Ping(ctx context.Context, sources map[Source]*sqlx.DB) map[Source]error {
	failed := make(map[Source]error)
	for name, db := range sources {
		if db == nil {
			failed[name] = fmt.Errorf("%s not connected", name)
			continue
		}
		if err := db.PingContext(ctx); err != nil {
			failed[name] = err
		}
	}
	return failed
}

// Close releases every source, returning the first error seen.
func Close(sources map[Source]*sqlx.DB) error {
	var first error
	for name, db := range sources {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && first == nil {
			first = fmt.Errorf("close %s: %w", name, err)
		}
	}
	return first
}
