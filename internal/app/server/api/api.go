// HTTP API облачного хранилища снимков:
//
//	GET  /health                     # проверка доступности (публичный)
//	GET  /api/sync/load?username=... # последний снимок пользователя
//	POST /api/sync/save              # {username, data}, целиком заменяет снимок
//	GET  /metrics                    # метрики Prometheus
package api

import (
	"net/http"

	"chronicles/internal/app/server/api/http/health"
	"chronicles/internal/app/server/api/http/middleware"
	"chronicles/internal/app/server/api/http/middleware/logger"
	"chronicles/internal/app/server/api/http/middleware/metrics"
	syncAPI "chronicles/internal/app/server/api/http/sync"
	"chronicles/internal/app/server/config"
	"chronicles/internal/domain/cloud"
	"chronicles/internal/infrastructure/storage"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
)

const metricsNamespace = "chronicles"

type Handlers struct {
	Health *health.Handler
	Sync   *syncAPI.Handler
}

// New создает *chi.Mux со всеми операциями, зарегистрированными через huma.Register
func New(kv storage.KV, cfg *config.Config, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.Recoverer)
	mux.Use(cors)

	humaConfig := huma.DefaultConfig("Chronicles Sync API", "1.0.0")
	API := humachi.New(mux, humaConfig)

	collector := metrics.NewCollector(metricsNamespace)
	mux.Handle("/metrics", collector.Handler())

	h := handlers(kv, cfg, collector, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(kv storage.KV, cfg *config.Config, collector *metrics.Collector, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := health.NewHandler(log, middlewares.GetAllAndClear())

	cloudService := cloud.NewService(kv, log, &cloud.ServiceConfig{
		MaxPayloadBytes:  cfg.Server.MaxPayloadBytes,
		ValidatePayloads: true,
	})
	middlewares.Add(collector.Middleware())
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(cloudService, log, middlewares.GetAllAndClear(), collector, cfg.Server.MaxPayloadBytes)

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}

// cors разрешает запросы из браузерного клиента, открытого с другого origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
