package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/dsctickets/dtmigrate/dtmigrate/database/models"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type TargetConfig struct {
	URL           string `toml:"url"`
	EncryptionKey string `toml:"encryption_key"`
	PoolSize      int    `toml:"pool_size"`
}

// TargetDB is the v4 store handle: a pgx pool for bulk COPY operations plus
// a bun handle for everything else, the same split the v4 bot uses. The
// encryption key stays in TargetConfig for the at-rest encryption layer; the
// pipeline itself treats content fields as opaque strings.
type TargetDB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func OpenTarget(ctx context.Context, cfg TargetConfig) (*TargetDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse v4 connection string: %w", err)
	}
	poolConfig.ConnConfig.ConnectTimeout = defaultConnTimeout
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create v4 connection pool: %w", err)
	}

	for i := 0; ; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		if i >= defaultMaxRetries {
			pool.Close()
			return nil, fmt.Errorf("v4 store unreachable after %d attempts: %w", defaultMaxRetries, err)
		}
		time.Sleep(defaultRetryInterval)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL)))
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	t := NewTarget(bunDB)
	t.pool = pool
	return t, nil
}

// NewTarget wraps an existing bun handle without a pgx pool. Used by
// OpenTarget and by tests running against sqlite.
func NewTarget(db *bun.DB) *TargetDB {
	return &TargetDB{bunDB: db}
}

func (t *TargetDB) BunDB() *bun.DB { return t.bunDB }

func (t *TargetDB) Pool() *pgxpool.Pool { return t.pool }

func (t *TargetDB) Close() {
	if t.pool != nil {
		t.pool.Close()
	}
	t.bunDB.Close()
}

// InitSchema creates the v4 tables when they are absent. The unique
// constraint on (ticket_id, user_id) comes from the model tags and is what
// actually enforces participant idempotency across runs.
func (t *TargetDB) InitSchema(ctx context.Context) error {
	targetModels := []any{
		(*models.Guild)(nil),
		(*models.Category)(nil),
		(*models.User)(nil),
		(*models.Ticket)(nil),
		(*models.ArchivedChannel)(nil),
		(*models.ArchivedRole)(nil),
		(*models.ArchivedUser)(nil),
		(*models.ArchivedMessage)(nil),
	}
	for _, model := range targetModels {
		if _, err := t.bunDB.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create target table for %T: %w", model, err)
		}
	}
	return nil
}
