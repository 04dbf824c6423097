package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV - хранилище именованных JSON-блобов.
// Put перезаписывает значение целиком: последняя запись побеждает, версий нет.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Драйверы хранилища, выбираемые конфигурацией.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverFile     = "file"
	DriverMemory   = "memory"
)
