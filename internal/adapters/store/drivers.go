package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Drivers accepted by Open.
const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns" env:"AEGIS_DB_MAX_OPEN_CONNS, overwrite"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"AEGIS_DB_MAX_IDLE_CONNS, overwrite"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"AEGIS_DB_CONN_MAX_LIFETIME, overwrite"`
}

// Open connects through database/sql with the lib/pq or pgx stdlib driver and
// pings the server before returning.
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (*sql.DB, error) {
	switch driver {
	case "", DriverPQ:
		driver = DriverPQ
	case DriverPGX:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}
