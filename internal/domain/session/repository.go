package session

import (
	"context"
	"errors"
	"fmt"

	"chronicles/internal/infrastructure/storage"

	"golang.org/x/exp/slog"
)

const (
	authKey     = "chronicles_auth_v1"
	usernameKey = "chronicles_username_v1"
)

type Repository interface {
	Save(ctx context.Context, username string) error
	Load(ctx context.Context) (username string, authenticated bool, err error)
	Clear(ctx context.Context) error
}

// NewRepo хранит флаг входа и имя пользователя рядом с коллекциями, в том же локальном хранилище.
func NewRepo(kv storage.KV, log *slog.Logger) Repository {
	return &repository{
		kv:  kv,
		log: log,
	}
}

type repository struct {
	kv  storage.KV
	log *slog.Logger
}

func (r *repository) Save(ctx context.Context, username string) error {
	if err := r.kv.Put(ctx, usernameKey, []byte(username)); err != nil {
		return fmt.Errorf("save username: %w", err)
	}
	if err := r.kv.Put(ctx, authKey, []byte("true")); err != nil {
		return fmt.Errorf("save auth flag: %w", err)
	}
	return nil
}

func (r *repository) Load(ctx context.Context) (string, bool, error) {
	flag, err := r.kv.Get(ctx, authKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load auth flag: %w", err)
	}

	name, err := r.kv.Get(ctx, usernameKey)
	if errors.Is(err, storage.ErrNotFound) {
		r.log.Warn("auth flag without username, ignoring")
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load username: %w", err)
	}

	return string(name), string(flag) == "true", nil
}

func (r *repository) Clear(ctx context.Context) error {
	for _, key := range []string{authKey, usernameKey} {
		if err := r.kv.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
