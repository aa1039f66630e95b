// Package database provides database connection and migration utilities.
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	"github.com/oszuidwest/zwfm-rotator/internal/config"
)

// Connect establishes a connection to the MySQL database using the provided configuration.
// The connection is configured with pool settings and includes a connectivity test.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	// multiStatements is required so migration files with several
	// statements apply in one pass.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local&multiStatements=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Conn wraps a database connection that long-running services can replace
// wholesale when it goes stale. Repositories hold a *Conn and fetch the
// live handle per query, so a reconnect heals every consumer at once.
type Conn struct {
	cfg config.DatabaseConfig

	mu sync.RWMutex
	db *sqlx.DB
}

// NewConn connects to the database and returns a reconnectable handle.
func NewConn(cfg config.DatabaseConfig) (*Conn, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	return &Conn{cfg: cfg, db: db}, nil
}

// DB returns the current underlying connection.
func (c *Conn) DB() *sqlx.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Ping probes connection liveness with a short timeout.
func (c *Conn) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.DB().PingContext(ctx)
}

// Reconnect discards the current connection and establishes a fresh one.
// The old connection is closed on a best-effort basis.
func (c *Conn) Reconnect() error {
	db, err := Connect(c.cfg)
	if err != nil {
		return fmt.Errorf("failed to reconnect to database: %w", err)
	}

	c.mu.Lock()
	old := c.db
	c.db = db
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
