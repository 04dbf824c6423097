package cloud

import "context"

// Repository - хранилище снимков. Реализуется любым storage.KV.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
