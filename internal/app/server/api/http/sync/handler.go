package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"chronicles/internal/domain/cloud"
	"chronicles/internal/domain/dataset"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Observer получает исходы операций синхронизации для метрик.
type Observer interface {
	ObserveSnapshot(operation, outcome string, size int)
}

type noopObserver struct{}

func (noopObserver) ObserveSnapshot(string, string, int) {}

type Handler struct {
	service      cloud.Servicer
	log          *slog.Logger
	middleware   huma.Middlewares
	observer     Observer
	maxBodyBytes int64
}

func NewHandler(service cloud.Servicer, log *slog.Logger, middleware huma.Middlewares, observer Observer, maxPayloadBytes int64) *Handler {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Handler{
		service:    service,
		log:        log.With(slog.String("component", "sync_handler")),
		middleware: middleware,
		observer:   observer,
		// запас на обертку {username, data}, точный предел проверяет сервис
		maxBodyBytes: maxPayloadBytes + 1<<20,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.loadOp(), h.load)
	huma.Register(api, h.saveOp(), h.save)
}

func (h *Handler) load(ctx context.Context, input *loadInput) (*loadOutput, error) {
	res, err := h.service.Load(ctx, input.Username)
	switch {
	case err == nil:
		h.log.Info("data loaded", "username", input.Username)
		h.observer.ObserveSnapshot("load", "ok", len(res.Data))
		return &loadOutput{
			Status: http.StatusOK,
			Body: LoadResponse{
				Success:   true,
				Data:      res.Data,
				Timestamp: dataset.FormatTime(res.Timestamp),
			},
		}, nil
	case errors.Is(err, cloud.ErrNotFound):
		h.log.Info("no data found", "username", input.Username)
		h.observer.ObserveSnapshot("load", "not_found", 0)
		return &loadOutput{
			Status: http.StatusNotFound,
			Body:   LoadResponse{Success: false, Message: "No data found for this user"},
		}, nil
	case errors.Is(err, cloud.ErrInvalidInput):
		h.observer.ObserveSnapshot("load", "invalid_input", 0)
		return &loadOutput{
			Status: http.StatusBadRequest,
			Body:   LoadResponse{Error: "Missing username parameter"},
		}, nil
	default:
		h.log.Error("load failed", "username", input.Username, "error", err)
		h.observer.ObserveSnapshot("load", "error", 0)
		return &loadOutput{
			Status: http.StatusInternalServerError,
			Body:   LoadResponse{Error: "Failed to load data", Details: err.Error()},
		}, nil
	}
}

func (h *Handler) save(ctx context.Context, input *saveInput) (*saveOutput, error) {
	var req SaveRequest
	if err := json.Unmarshal(input.RawBody, &req); err != nil {
		h.observer.ObserveSnapshot("save", "invalid_input", 0)
		return &saveOutput{
			Status: http.StatusBadRequest,
			Body:   SaveResponse{Error: "Malformed request body", Details: err.Error()},
		}, nil
	}

	ts, err := h.service.Save(ctx, req.Username, req.Data)
	if err == nil {
		h.observer.ObserveSnapshot("save", "ok", len(req.Data))
		return &saveOutput{
			Status: http.StatusOK,
			Body: SaveResponse{
				Success:   true,
				Message:   "Data saved successfully",
				Timestamp: dataset.FormatTime(ts),
			},
		}, nil
	}

	var de *cloud.DomainError
	msg := err.Error()
	if errors.As(err, &de) {
		msg = de.Message
	}

	switch {
	case errors.Is(err, cloud.ErrInvalidInput):
		h.observer.ObserveSnapshot("save", "invalid_input", 0)
		return &saveOutput{Status: http.StatusBadRequest, Body: SaveResponse{Error: msg}}, nil
	case errors.Is(err, cloud.ErrPayloadTooLarge):
		h.observer.ObserveSnapshot("save", "too_large", len(req.Data))
		return &saveOutput{Status: http.StatusRequestEntityTooLarge, Body: SaveResponse{Error: msg}}, nil
	case errors.Is(err, cloud.ErrInvalidPayload):
		h.observer.ObserveSnapshot("save", "invalid_payload", len(req.Data))
		return &saveOutput{
			Status: http.StatusUnprocessableEntity,
			Body:   SaveResponse{Error: "Invalid data", Details: msg},
		}, nil
	default:
		h.log.Error("save failed", "username", req.Username, "error", err)
		h.observer.ObserveSnapshot("save", "error", 0)
		return &saveOutput{
			Status: http.StatusInternalServerError,
			Body:   SaveResponse{Error: "Failed to save data", Details: err.Error()},
		}, nil
	}
}
