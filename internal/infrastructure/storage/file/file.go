package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"chronicles/internal/infrastructure/storage"

	"golang.org/x/exp/slog"
)

const fileExt = ".json"

// KV хранит каждое значение в отдельном файле <dir>/<escaped key>.json.
// Запись атомарна: временный файл и rename в той же директории.
type KV struct {
	dir   string
	log   *slog.Logger
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(dir string, log *slog.Logger) (*KV, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &KV{
		dir:   dir,
		log:   log.With(slog.String("component", "file_kv")),
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Dir - директория с файлами (нужна наблюдателю за изменениями).
func (f *KV) Dir() string {
	return f.dir
}

// Path возвращает путь к файлу ключа.
func (f *KV) Path(key string) string {
	return filepath.Join(f.dir, url.QueryEscape(key)+fileExt)
}

func (f *KV) Get(_ context.Context, key string) ([]byte, error) {
	unlock := f.lock(key)
	defer unlock()

	data, err := os.ReadFile(f.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (f *KV) Put(_ context.Context, key string, value []byte) error {
	unlock := f.lock(key)
	defer unlock()

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, f.Path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}

	f.log.Debug("value written", slog.String("key", key), slog.Int("bytes", len(value)))
	return nil
}

func (f *KV) Delete(_ context.Context, key string) error {
	unlock := f.lock(key)
	defer unlock()

	err := os.Remove(f.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (f *KV) Close() error { return nil }

func (f *KV) lock(key string) func() {
	f.mu.Lock()
	l, ok := f.locks[key]
	if !ok {
		l = &sync.Mutex{}
		f.locks[key] = l
	}
	f.mu.Unlock()

	l.Lock()
	return l.Unlock
}
