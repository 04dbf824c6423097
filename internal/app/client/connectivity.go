package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
)

// Connectivity сообщает, есть ли сейчас связь с облаком.
type Connectivity interface {
	Online() bool
}

// StaticConnectivity - фиксированное состояние сети (тесты, --offline).
type StaticConnectivity bool

func (s StaticConnectivity) Online() bool { return bool(s) }

// Prober проверяет доступность сервера одним запросом.
type Prober interface {
	HealthCheck(ctx context.Context) error
}

// Monitor периодически опрашивает /health и хранит последнее известное состояние сети.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	online atomic.Bool

	mu        sync.Mutex
	listeners []func(online bool)
}

func NewMonitor(prober Prober, interval time.Duration, log *slog.Logger) *Monitor {
	m := &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  5 * time.Second,
		log:      log.With(slog.String("component", "connectivity")),
	}
	// до первой проверки считаем, что сеть есть: запрос сам покажет обратное
	m.online.Store(true)
	return m
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

// OnChange подписывает fn на смену состояния сети.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Check выполняет одну проверку и обновляет состояние.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	online := m.prober.HealthCheck(ctx) == nil
	if prev := m.online.Swap(online); prev != online {
		m.log.Info("connectivity changed", "online", online)
		m.mu.Lock()
		listeners := append([]func(bool){}, m.listeners...)
		m.mu.Unlock()
		for _, fn := range listeners {
			fn(online)
		}
	}
	return online
}

// Run опрашивает сервер до отмены ctx.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
