package user

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

type Servicer interface {
	Authenticate(ctx context.Context, login, password string) (User, error)
}

type Service struct {
	repo      Repository
	validator Validator
	log       *slog.Logger
}

func NewService(repo Repository, validator Validator, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		log:       log,
	}
}

// Authenticate проверяет пару логин/пароль. Любая ошибка, кроме инфраструктурной,
// сводится к ErrInvalidAuth, чтобы не выдавать, какая из половин неверна.
func (s *Service) Authenticate(ctx context.Context, login, password string) (User, error) {
	if err := s.validator.ValidateLogin(login); err != nil {
		s.log.Debug("login rejected", "login", login, "error", err)
		return User{}, ErrInvalidAuth
	}

	user, err := s.repo.FindByLogin(ctx, login)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidAuth
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return User{}, ErrInvalidAuth
	}

	return user, nil
}

// HashPassword проверяет пароль валидатором и возвращает bcrypt-хэш для конфигурации.
func HashPassword(validator Validator, password string) (string, error) {
	if err := validator.ValidatePassword(password); err != nil {
		return "", &DomainError{Err: ErrInvalidInput, Message: err.Error(), Code: "weak_password"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("Хэш пароля: %w", err)
	}
	return string(hash), nil
}
