package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// ErrPoolExhausted is returned when acquire cannot obtain a connection
// within the configured connection timeout.
var ErrPoolExhausted = errors.New("postgres: pool exhausted")

// PoolConfig maps the spec's pool parameters onto pgxpool.Config fields.
type PoolConfig struct {
	DSN               string
	MinConnections    int32
	MaxConnections    int32
	ConnectionTimeout time.Duration
	IdleTimeout       time.Duration
	MaxAge            time.Duration
}

// ConnectionPool is a thin, spec-shaped facade over pgxpool.Pool. pgxpool
// already validates connections on acquire and evicts by idle-time/max-age
// internally, so this wraps it rather than reimplementing pooling: the
// value this type adds is enforcing connection_timeout via context and
// translating pgxpool's saturation error into ErrPoolExhausted.
type ConnectionPool struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// Open creates a pgxpool.Pool from cfg and wraps it.
func Open(ctx context.Context, cfg PoolConfig) (*ConnectionPool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse pool config: %w", err)
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = cfg.IdleTimeout
	}
	if cfg.MaxAge > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxAge
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ConnectionPool{pool: pool, timeout: timeout}, nil
}

// FromPool wraps an already-constructed pgxpool.Pool, used by tests and by
// callers that manage pool lifecycle themselves.
func FromPool(pool *pgxpool.Pool, timeout time.Duration) *ConnectionPool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ConnectionPool{pool: pool, timeout: timeout}
}

// Acquire blocks up to the configured connection_timeout for a free
// connection, returning ErrPoolExhausted on timeout.
func (p *ConnectionPool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrPoolExhausted
		}
		return nil, fmt.Errorf("postgres: acquire: %w", err)
	}
	return conn, nil
}

// Release returns conn to the pool. pgxpool.Conn.Release already discards
// unhealthy connections instead of returning them to the idle set.
func (p *ConnectionPool) Release(conn *pgxpool.Conn) {
	conn.Release()
}

// Stats mirrors the spec's pool stats contract.
type Stats struct {
	Size  int32
	InUse int32
	Idle  int32
}

// Stats reports current pool occupancy.
func (p *ConnectionPool) Stats() Stats {
	s := p.pool.Stat()
	return Stats{
		Size:  s.TotalConns(),
		InUse: s.AcquiredConns(),
		Idle:  s.IdleConns(),
	}
}

// CloseAll closes every connection and tears down the pool.
func (p *ConnectionPool) CloseAll() {
	p.pool.Close()
}

// PoolConfigFromDatabaseConfig builds a PoolConfig/DSN from the run's
// DatabaseConfig, the shape the Loader receives from skypeetl.Config.
func PoolConfigFromDatabaseConfig(db skypeetl.DatabaseConfig, minConns, maxConns int32, idleTimeout, maxAge time.Duration) PoolConfig {
	timeout := db.ConnectionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?application_name=%s",
		db.User, db.Password, db.Host, db.Port, db.DBName, orDefault(db.ApplicationName, "skypeetl"))
	return PoolConfig{
		DSN:               dsn,
		MinConnections:    minConns,
		MaxConnections:    maxConns,
		ConnectionTimeout: timeout,
		IdleTimeout:       idleTimeout,
		MaxAge:            maxAge,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
