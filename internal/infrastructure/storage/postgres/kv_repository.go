package postgres

import (
	"context"
	"errors"
	"fmt"

	"chronicles/internal/infrastructure/storage"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"
)

// KVRepository хранит JSON-снимки в таблице kv_store (value jsonb).
// Upsert атомарен на уровне строки, так что конкурирующие записи одного ключа
// сериализуются базой: побеждает последняя.
type KVRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewKVRepository(db *Storage, log *slog.Logger) *KVRepository {
	return &KVRepository{
		db:  db,
		log: log.With("component", "kv_repository"),
	}
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM kv_store WHERE key = $1`

	var value []byte
	err := r.db.Pool().QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		r.log.Error("failed to get value", "key", key, "error", err)
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (r *KVRepository) Put(ctx context.Context, key string, value []byte) error {
	const query = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := r.db.Pool().Exec(ctx, query, key, value); err != nil {
		r.log.Error("failed to put value", "key", key, "bytes", len(value), "error", err)
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Pool().Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Close() error {
	return r.db.Close()
}
