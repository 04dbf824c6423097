package client

import (
	"context"
	"errors"
	"fmt"

	"chronicles/internal/app/client/config"
	"chronicles/internal/domain/dataset"
	"chronicles/internal/infrastructure/storage"
	"chronicles/internal/infrastructure/storage/file"
	"chronicles/internal/infrastructure/storage/memory"
	"chronicles/internal/infrastructure/storage/sqlite"

	"golang.org/x/exp/slog"
)

// LocalStore хранит каждую коллекцию отдельным JSON-значением под версионированным ключом.
// Ошибки чтения и разбора не пробрасываются: коллекция считается отсутствующей.
type LocalStore struct {
	kv  storage.KV
	log *slog.Logger
}

func NewLocalStore(kv storage.KV, log *slog.Logger) *LocalStore {
	return &LocalStore{
		kv:  kv,
		log: log.With(slog.String("component", "local_store")),
	}
}

// OpenLocalKV открывает хранилище клиента по LOCAL_STORE.
// Если диск недоступен, работаем в памяти: данные сессии не переживут выход, но клиент запустится.
func OpenLocalKV(cfg *config.Config, log *slog.Logger) storage.KV {
	var (
		kv  storage.KV
		err error
	)
	switch cfg.LocalStore {
	case config.StoreFile:
		kv, err = file.New(cfg.DataPath, log)
	default:
		kv, err = sqlite.New(cfg.DataPath)
	}
	if err != nil {
		log.Warn("Не удалось открыть локальное хранилище, используем память", "store", cfg.LocalStore, "error", err)
		return memory.New()
	}
	return kv
}

// Load читает все коллекции. missing перечисляет коллекции, которых в хранилище нет
// (или они повреждены); в d они пустые.
func (s *LocalStore) Load(ctx context.Context) (d dataset.Dataset, missing []dataset.Collection) {
	for _, c := range dataset.Collections {
		if !s.loadCollection(ctx, &d, c) {
			missing = append(missing, c)
		}
	}
	d.Normalize()
	return d, missing
}

func (s *LocalStore) loadCollection(ctx context.Context, d *dataset.Dataset, c dataset.Collection) bool {
	raw, err := s.kv.Get(ctx, c.StorageKey())
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		s.log.Error("read collection", "collection", c, "error", err)
		return false
	}
	if err := d.UnmarshalCollection(c, raw); err != nil {
		s.log.Error("corrupt collection, ignoring", "collection", c, "error", err)
		return false
	}
	return true
}

// Save перезаписывает одну коллекцию.
func (s *LocalStore) Save(ctx context.Context, c dataset.Collection, d dataset.Dataset) error {
	raw, err := d.MarshalCollection(c)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, c.StorageKey(), raw); err != nil {
		return fmt.Errorf("save %s: %w", c, err)
	}
	return nil
}

// SaveAll перезаписывает все коллекции; ошибки собираются, а не прерывают запись остальных.
func (s *LocalStore) SaveAll(ctx context.Context, d dataset.Dataset) error {
	var errs []error
	for _, c := range dataset.Collections {
		if err := s.Save(ctx, c, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *LocalStore) KV() storage.KV {
	return s.kv
}
