package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chronicles/internal/app/client/config"
	"chronicles/internal/domain/dataset"
	"chronicles/internal/domain/session"

	"github.com/sony/gobreaker"
	"golang.org/x/exp/slog"
)

// Reason - класс неуспешного результата синхронизации.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonValidation     Reason = "validation"
	ReasonOffline        Reason = "offline"
	ReasonNoUser         Reason = "no_user"
	ReasonTooLarge       Reason = "too_large"
	ReasonTransport      Reason = "transport"
	ReasonServer         Reason = "server"
	ReasonInvalidPayload Reason = "invalid_payload"
)

// Result - итог обращения к облаку. Ошибки сети не возвращаются как error,
// а превращаются в Success=false с сообщением.
// Aborted означает отмену: такой результат нельзя применять.
type Result struct {
	Success bool
	Message string
	Data    *dataset.Snapshot
	Aborted bool
	Reason  Reason
	// Size - размер сериализованного набора данных в байтах (для сохранения).
	Size int
}

// Remote - облачное хранилище снимков с точки зрения оркестратора.
type Remote interface {
	SaveToCloud(ctx context.Context, sess *session.Session, d dataset.Dataset) Result
	LoadFromCloud(ctx context.Context, sess *session.Session) Result
}

type remoteClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
	conn      Connectivity
	maxBytes  int64
	breaker   *gobreaker.CircuitBreaker
	now       func() time.Time
}

// NewRemoteClient создает клиент облачного хранилища.
// Запросы идут через circuit breaker: после серии сбоев сервер не дергается, пока не истечет пауза.
func NewRemoteClient(cfg *config.Config, conn Connectivity, log *slog.Logger) *remoteClient {
	log = log.With(slog.String("component", "remote_client"))

	client := &http.Client{
		Timeout: cfg.Sync.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chronicles-sync",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// отмена - решение клиента, а не сбой сервера
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &remoteClient{
		client:    client,
		log:       log,
		baseURL:   cfg.BaseURL(),
		userAgent: "Chronicles-Client/1.0",
		conn:      conn,
		maxBytes:  cfg.Sync.MaxBytes,
		breaker:   breaker,
		now:       time.Now,
	}
}

// EstimateSize возвращает размер набора данных в том виде, в каком он уйдет в облако.
func EstimateSize(d dataset.Dataset) (int, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

// TooLargeMessage - подсказка пользователю, когда данные не проходят по размеру.
func TooLargeMessage(size int) string {
	return fmt.Sprintf("Данные занимают около %.1f МБ и превышают предел облачной синхронизации. Уменьшите количество или размер фотографий.",
		float64(size)/(1<<20))
}

func (c *remoteClient) precheck(sess *session.Session) (Result, bool) {
	if !c.conn.Online() {
		return Result{Message: "Нет сети, синхронизация с облаком невозможна", Reason: ReasonOffline}, false
	}
	if !sess.Ready() {
		return Result{Message: "Вход не выполнен, синхронизация невозможна", Reason: ReasonNoUser}, false
	}
	return Result{}, true
}

func (c *remoteClient) SaveToCloud(ctx context.Context, sess *session.Session, d dataset.Dataset) Result {
	if res, ok := c.precheck(sess); !ok {
		return res
	}

	snap := dataset.NewSnapshot(d, c.now())
	payload, err := snap.Encode()
	if err != nil {
		return Result{Message: fmt.Sprintf("не удалось сериализовать данные: %v", err), Reason: ReasonValidation}
	}
	if int64(len(payload)) > c.maxBytes {
		c.log.Warn("payload rejected locally", "bytes", len(payload), "limit", c.maxBytes)
		return Result{Message: TooLargeMessage(len(payload)), Reason: ReasonTooLarge, Size: len(payload)}
	}

	body, err := json.Marshal(struct {
		Username string          `json:"username"`
		Data     json.RawMessage `json:"data"`
	}{Username: sess.Username, Data: payload})
	if err != nil {
		return Result{Message: fmt.Sprintf("не удалось сериализовать запрос: %v", err), Reason: ReasonValidation}
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/api/sync/save", body)
	if res, failed := c.failure(ctx, "save", err); failed {
		return res
	}

	if status != http.StatusOK {
		return Result{Message: "Синхронизация не удалась: " + serverMessage(status, respBody), Reason: ReasonServer, Size: len(payload)}
	}

	c.log.Info("snapshot pushed", "username", sess.Username, "bytes", len(payload))
	return Result{Success: true, Message: "Данные сохранены в облаке", Size: len(payload)}
}

func (c *remoteClient) LoadFromCloud(ctx context.Context, sess *session.Session) Result {
	if res, ok := c.precheck(sess); !ok {
		return res
	}

	status, respBody, err := c.do(ctx, http.MethodGet, "/api/sync/load?username="+url.QueryEscape(sess.Username), nil)
	if res, failed := c.failure(ctx, "load", err); failed {
		return res
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return Result{Success: true, Message: "В облаке пока нет данных"}
	default:
		return Result{Message: "Загрузка не удалась: " + serverMessage(status, respBody), Reason: ReasonServer}
	}

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Result{Message: fmt.Sprintf("Некорректный ответ сервера: %v", err), Reason: ReasonInvalidPayload}
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return Result{Success: true, Message: "В облаке пока нет данных"}
	}

	snap, err := dataset.DecodeSnapshot(resp.Data)
	if err != nil {
		c.log.Error("remote snapshot rejected", "error", err)
		return Result{Message: fmt.Sprintf("Данные в облаке повреждены: %v", err), Reason: ReasonInvalidPayload}
	}

	c.log.Info("snapshot pulled", "username", sess.Username, "bytes", len(resp.Data))
	return Result{Success: true, Message: "Данные загружены из облака", Data: snap, Size: len(resp.Data)}
}

// HealthCheck проверяет доступность сервера
func (c *remoteClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}
	return nil
}

type response struct {
	status int
	body   []byte
}

// do выполняет запрос через breaker. 5xx считается сбоем сервера, остальные статусы отдаются вызывающему.
func (c *remoteClient) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания запроса: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.log.Debug("Отправка запроса", "method", method, "path", path, "bytes", len(body))

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
		}
		defer resp.Body.Close()

		// ответ load не больше сохраняемого снимка плюс обертка
		data, err := io.ReadAll(io.LimitReader(resp.Body, 2*c.maxBytes+1<<20))
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
		}

		r := response{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return r, fmt.Errorf("ошибка сервера: %s", serverMessage(resp.StatusCode, data))
		}
		return r, nil
	})

	if r, ok := out.(response); ok {
		if err != nil && r.status >= http.StatusInternalServerError {
			// 5xx отдается как статус: сообщение сервера полезнее текста ошибки
			return r.status, r.body, nil
		}
		return r.status, r.body, err
	}
	return 0, nil, err
}

// failure переводит ошибку транспорта в Result. Отмена контекста дает Aborted.
func (c *remoteClient) failure(ctx context.Context, op string, err error) (Result, bool) {
	if err == nil {
		return Result{}, false
	}
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		c.log.Debug("request aborted", "op", op)
		return Result{Aborted: true, Message: "Запрос отменен"}, true
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Result{Message: "Сервер недавно не отвечал, повторите попытку позже", Reason: ReasonTransport}, true
	}
	c.log.Error("request failed", "op", op, "error", err)
	return Result{Message: err.Error(), Reason: ReasonTransport}, true
}

func serverMessage(status int, body []byte) string {
	var resp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		switch {
		case resp.Error != "" && resp.Details != "":
			return resp.Error + ": " + resp.Details
		case resp.Error != "":
			return resp.Error
		case resp.Message != "":
			return resp.Message
		}
	}
	return fmt.Sprintf("статус %d %s", status, http.StatusText(status))
}
