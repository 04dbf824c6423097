package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordValidator_ValidateLogin(t *testing.T) {
	validator := NewPasswordValidator()

	tests := []struct {
		name        string
		login       string
		wantErr     bool
		expectedErr string
	}{
		{
			name:    "household login",
			login:   "CHLJ",
			wantErr: false,
		},
		{
			name:        "too short",
			login:       "ab",
			wantErr:     true,
			expectedErr: "login must be at least 3 characters",
		},
		{
			name:        "too long",
			login:       strings.Repeat("a", 33),
			wantErr:     true,
			expectedErr: "login must be at most 32 characters",
		},
		{
			name:    "valid with underscore",
			login:   "user_name",
			wantErr: false,
		},
		{
			name:    "valid with dot",
			login:   "user.name",
			wantErr: false,
		},
		{
			name:        "invalid space",
			login:       "user name",
			wantErr:     true,
			expectedErr: "login can only contain letters, digits, '_', '-', '.'",
		},
		{
			name:        "invalid special char",
			login:       "user@name",
			wantErr:     true,
			expectedErr: "login can only contain letters, digits, '_', '-', '.'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateLogin(tt.login)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPasswordValidator_ValidatePassword(t *testing.T) {
	tests := []struct {
		name        string
		opts        []Option
		password    string
		wantErr     bool
		expectedErr string
	}{
		{
			name:     "anniversary date",
			password: "20250119",
		},
		{
			name:        "too short",
			password:    "2025",
			wantErr:     true,
			expectedErr: "password must be at least 8 characters",
		},
		{
			name:        "no digit",
			password:    "aurora-borealis",
			wantErr:     true,
			expectedErr: "password must contain at least one digit",
		},
		{
			name:        "letters required",
			opts:        []Option{WithLetters()},
			password:    "20250119",
			wantErr:     true,
			expectedErr: "password must contain at least one letter",
		},
		{
			name:     "letters and digits",
			opts:     []Option{WithLetters()},
			password: "aurora2025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPasswordValidator(tt.opts...).ValidatePassword(tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewPasswordValidator(t *testing.T) {
	v := NewPasswordValidator()
	assert.True(t, v.requireDigit)
	assert.False(t, v.requireLetter)

	v = NewPasswordValidator(WithLetters())
	assert.True(t, v.requireLetter)
}
