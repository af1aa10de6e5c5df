package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// IndexSnapshot is the persisted row for one document's index payload.
type IndexSnapshot struct {
	bun.BaseModel `bun:"table:index_snapshots,alias:s"`

	Key       string    `bun:"key,pk"`
	Payload   []byte    `bun:"payload,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PostgresStore keeps snapshots in a Postgres table through bun.
type PostgresStore struct {
	db *bun.DB
}

func ConnectDB(dsn string, debug bool) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func NewPostgresStore(ctx context.Context, db *bun.DB) (*PostgresStore, error) {
	if _, err := db.NewCreateTable().Model((*IndexSnapshot)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, payload []byte) error {
	if key == "" {
		return fmt.Errorf("snapshot key cannot be empty")
	}
	snapshot := &IndexSnapshot{Key: key, Payload: payload, UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().
		Model(snapshot).
		On("CONFLICT (key) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	snapshot := new(IndexSnapshot)
	err := s.db.NewSelect().Model(snapshot).Where("key = ?", key).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snapshot.Payload, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
