package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"chronicles/internal/domain/dataset"
	"chronicles/internal/infrastructure/storage"

	"golang.org/x/exp/slog"
)

const (
	maxUsernameLen         = 128
	defaultMaxPayloadBytes = 50 << 20
)

// Servicer интерфейс облачного хранилища снимков
type Servicer interface {
	// Load возвращает последний сохраненный снимок пользователя
	Load(ctx context.Context, username string) (*LoadResult, error)

	// Save целиком перезаписывает снимок пользователя
	Save(ctx context.Context, username string, data []byte) (time.Time, error)
}

// ServiceConfig настройки сервиса
type ServiceConfig struct {
	MaxPayloadBytes int64
	// ValidatePayloads включает проверку схемы набора данных перед сохранением
	ValidatePayloads bool
}

type Service struct {
	repo   Repository
	log    *slog.Logger
	config *ServiceConfig
	now    func() time.Time
}

func NewService(repo Repository, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{
			MaxPayloadBytes:  defaultMaxPayloadBytes,
			ValidatePayloads: true,
		}
	}

	return &Service{
		repo:   repo,
		log:    log.With(slog.String("component", "cloud_service")),
		config: config,
		now:    time.Now,
	}
}

func (s *Service) Load(ctx context.Context, username string) (*LoadResult, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	data, err := s.repo.Get(ctx, Key(username))
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Debug("no snapshot stored", "username", username)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return &LoadResult{Data: data, Timestamp: s.now()}, nil
}

func (s *Service) Save(ctx context.Context, username string, data []byte) (time.Time, error) {
	if err := validateUsername(username); err != nil {
		return time.Time{}, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return time.Time{}, &DomainError{Err: ErrInvalidInput, Message: "Missing username or data", Code: "missing_data"}
	}

	if int64(len(data)) > s.config.MaxPayloadBytes {
		s.log.Warn("payload rejected",
			"username", username,
			"bytes", len(data),
			"limit", s.config.MaxPayloadBytes)
		return time.Time{}, &DomainError{
			Err:     ErrPayloadTooLarge,
			Message: fmt.Sprintf("Payload too large: %.1f MB exceeds %d MB", float64(len(data))/(1<<20), s.config.MaxPayloadBytes>>20),
			Code:    "payload_too_large",
		}
	}

	if s.config.ValidatePayloads {
		if _, err := dataset.DecodeSnapshot(data); err != nil {
			return time.Time{}, &DomainError{Err: ErrInvalidPayload, Message: err.Error(), Code: "invalid_payload"}
		}
	}

	if err := s.repo.Put(ctx, Key(username), data); err != nil {
		return time.Time{}, fmt.Errorf("save snapshot: %w", err)
	}

	s.log.Info("snapshot saved", "username", username, "bytes", len(data))
	return s.now(), nil
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return &DomainError{Err: ErrInvalidInput, Message: "Username is required", Code: "missing_username"}
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return &DomainError{Err: ErrInvalidInput, Message: "Username is too long", Code: "invalid_username"}
	}
	return nil
}
