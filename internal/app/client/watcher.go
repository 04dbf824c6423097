package client

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"chronicles/internal/infrastructure/storage"
	"chronicles/internal/infrastructure/storage/file"
	"chronicles/internal/infrastructure/storage/sqlite"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"
)

// StoreWatcher следит за файлами локального хранилища и сообщает об изменениях,
// сделанных другими процессами (например, соседней командой CLI).
// Пачка событий в пределах delay сводится к одному вызову.
type StoreWatcher struct {
	watcher *fsnotify.Watcher
	dir     string
	match   func(name string) bool
	delay   time.Duration
	log     *slog.Logger
}

// WatchTarget определяет директорию и фильтр имен для хранилища kv.
// Хранилище в памяти наблюдать нечего: ok == false.
func WatchTarget(kv storage.KV) (dir string, match func(name string) bool, ok bool) {
	switch s := kv.(type) {
	case *file.KV:
		return s.Dir(), func(name string) bool {
			return strings.HasSuffix(name, ".json")
		}, true
	case *sqlite.KV:
		base := filepath.Base(s.Path())
		// изменения в WAL-режиме попадают сначала в -wal
		return filepath.Dir(s.Path()), func(name string) bool {
			return name == base || name == base+"-wal"
		}, true
	}
	return "", nil, false
}

func NewStoreWatcher(dir string, match func(name string) bool, delay time.Duration, log *slog.Logger) (*StoreWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if match == nil {
		match = func(string) bool { return true }
	}
	return &StoreWatcher{
		watcher: w,
		dir:     dir,
		match:   match,
		delay:   delay,
		log:     log.With(slog.String("component", "store_watcher")),
	}, nil
}

// Run доставляет onChange до отмены ctx и закрывает наблюдатель.
func (w *StoreWatcher) Run(ctx context.Context, onChange func()) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.delay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("store changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.delay)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)

		case <-timer.C:
			onChange()
		}
	}
}

func (w *StoreWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	return w.match(filepath.Base(event.Name))
}
