package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slog"
)

var ErrNoSession = errors.New("not logged in")

// Session - контекст вошедшего пользователя. Передается явно во все операции синхронизации.
type Session struct {
	Username      string
	Authenticated bool
}

// Ready сообщает, можно ли выполнять сетевые операции от имени сессии.
func (s *Session) Ready() bool {
	return s != nil && s.Authenticated && strings.TrimSpace(s.Username) != ""
}

type Servicer interface {
	Open(ctx context.Context, username string) (*Session, error)
	Restore(ctx context.Context) (*Session, error)
	Close(ctx context.Context) error
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

func (s *Service) Open(ctx context.Context, username string) (*Session, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("open session: empty username")
	}
	if err := s.repo.Save(ctx, username); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	s.log.Info("session opened", "username", username)
	return &Session{Username: username, Authenticated: true}, nil
}

// Restore поднимает сессию, сохраненную предыдущим запуском.
func (s *Service) Restore(ctx context.Context) (*Session, error) {
	username, ok, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	sess := &Session{Username: username, Authenticated: ok}
	if !sess.Ready() {
		return nil, ErrNoSession
	}
	return sess, nil
}

func (s *Service) Close(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	s.log.Info("session closed")
	return nil
}
