package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/pkg/config"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const maxAttempts = 2

// Runner executes a unit of data-store work.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context, conn *gorm.DB) error) error
}

// RetryObserver receives retry outcomes ("recovered", "exhausted").
type RetryObserver interface {
	ObserveStoreRetry(result string)
}

// Client wraps the shared GORM connection.
type Client struct {
	conn     *gorm.DB
	timeout  time.Duration
	backoff  time.Duration
	observer RetryObserver
	logg     *logger.Logger
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New boots a GORM client using the provided configuration.
func New(ctx context.Context, cfg config.DBConfig, store config.StoreConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg)

	client := NewWithConn(conn, store)
	client.logg = logg
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "database connection established")
	}
	return client, nil
}

// NewWithConn wraps an already opened connection.
func NewWithConn(conn *gorm.DB, store config.StoreConfig) *Client {
	return &Client{
		conn:    conn,
		timeout: store.Timeout,
		backoff: store.RetryBackoff,
	}
}

// SetRetryObserver registers a sink for retry outcomes.
func (c *Client) SetRetryObserver(observer RetryObserver) {
	c.observer = observer
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Do runs fn with a per-attempt timeout. A transient failure is retried once
// after the configured backoff; a second transient failure is reported as
// TRANSIENT_STORE_ERROR. Non-transient errors are returned untouched.
func (c *Client) Do(ctx context.Context, fn func(ctx context.Context, conn *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = c.attempt(ctx, fn)
		if err == nil {
			if attempt > 1 {
				c.observe("recovered")
			}
			return nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		if c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "transient store error, retrying")
		}
		if c.backoff > 0 {
			timer := time.NewTimer(c.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	c.observe("exhausted")
	return pkgerrors.Wrap(pkgerrors.CodeTransientStore, err, "data store call failed after retry")
}

func (c *Client) attempt(ctx context.Context, fn func(ctx context.Context, conn *gorm.DB) error) error {
	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	defer cancel()
	return fn(attemptCtx, c.conn.WithContext(attemptCtx))
}

func (c *Client) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveStoreRetry(result)
	}
}

// WithTx executes fn inside a transaction, rolling back on error/panic. The
// whole transaction is the retry unit, so fn must not leak side effects
// outside tx.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.Do(ctx, func(ctx context.Context, conn *gorm.DB) error {
		return runTx(conn, fn)
	})
}

func runTx(conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := conn.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// InTx binds work to an open transaction. Retries are owned by the enclosing
// WithTx, so the returned runner calls fn exactly once.
func InTx(tx *gorm.DB) Runner {
	return txRunner{tx: tx}
}

type txRunner struct {
	tx *gorm.DB
}

func (r txRunner) Do(ctx context.Context, fn func(ctx context.Context, conn *gorm.DB) error) error {
	return fn(ctx, r.tx.WithContext(ctx))
}
