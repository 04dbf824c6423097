package cloud

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chronicles/internal/infrastructure/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRepository - мок для Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRepository) Put(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func newTestService(repo Repository, cfg *ServiceConfig) *Service {
	s := NewService(repo, slog.Default(), cfg)
	s.now = func() time.Time { return time.Date(2025, 1, 19, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestService_Load(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		setupMock func(*MockRepository)
		wantErr   error
		wantData  string
	}{
		{
			name:     "stored snapshot",
			username: "CHLJ",
			setupMock: func(m *MockRepository) {
				m.On("Get", mock.Anything, "user:CHLJ").Return([]byte(`{"todos":[]}`), nil)
			},
			wantData: `{"todos":[]}`,
		},
		{
			name:     "nothing stored",
			username: "CHLJ",
			setupMock: func(m *MockRepository) {
				m.On("Get", mock.Anything, "user:CHLJ").Return(nil, storage.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name:     "repository failure",
			username: "CHLJ",
			setupMock: func(m *MockRepository) {
				m.On("Get", mock.Anything, "user:CHLJ").Return(nil, errors.New("disk on fire"))
			},
			wantErr: errors.New("load snapshot: disk on fire"),
		},
		{
			name:      "missing username",
			username:  "  ",
			setupMock: func(m *MockRepository) {},
			wantErr:   ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMock(repo)
			s := newTestService(repo, nil)

			res, err := s.Load(context.Background(), tt.username)

			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
				assert.JSONEq(t, tt.wantData, string(res.Data))
				assert.False(t, res.Timestamp.IsZero())
			case errors.Is(tt.wantErr, ErrNotFound) || errors.Is(tt.wantErr, ErrInvalidInput):
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.EqualError(t, err, tt.wantErr.Error())
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Save(t *testing.T) {
	valid := []byte(`{"schemaVersion":1,"todos":[{"id":"1","text":"A","completed":false}],"lastSyncTime":"2025-01-19T00:00:00.000Z"}`)

	tests := []struct {
		name      string
		username  string
		data      []byte
		cfg       *ServiceConfig
		setupMock func(*MockRepository)
		wantErr   error
		wantCode  string
	}{
		{
			name:     "valid snapshot is stored",
			username: "CHLJ",
			data:     valid,
			setupMock: func(m *MockRepository) {
				m.On("Put", mock.Anything, "user:CHLJ", valid).Return(nil)
			},
		},
		{
			name:      "missing data",
			username:  "CHLJ",
			data:      []byte("null"),
			setupMock: func(m *MockRepository) {},
			wantErr:   ErrInvalidInput,
			wantCode:  "missing_data",
		},
		{
			name:      "too large",
			username:  "CHLJ",
			data:      []byte(`{"todos":[` + strings.Repeat(" ", 2048) + `]}`),
			cfg:       &ServiceConfig{MaxPayloadBytes: 1024, ValidatePayloads: true},
			setupMock: func(m *MockRepository) {},
			wantErr:   ErrPayloadTooLarge,
			wantCode:  "payload_too_large",
		},
		{
			name:      "schema violation",
			username:  "CHLJ",
			data:      []byte(`{"todos":[{"text":"no id"}]}`),
			setupMock: func(m *MockRepository) {},
			wantErr:   ErrInvalidPayload,
			wantCode:  "invalid_payload",
		},
		{
			name:     "schema check disabled",
			username: "CHLJ",
			data:     []byte(`{"todos":[{"text":"no id"}]}`),
			cfg:      &ServiceConfig{MaxPayloadBytes: 1 << 20},
			setupMock: func(m *MockRepository) {
				m.On("Put", mock.Anything, "user:CHLJ", mock.Anything).Return(nil)
			},
		},
		{
			name:     "repository failure",
			username: "CHLJ",
			data:     valid,
			setupMock: func(m *MockRepository) {
				m.On("Put", mock.Anything, "user:CHLJ", valid).Return(errors.New("read-only fs"))
			},
			wantErr: errors.New("save snapshot: read-only fs"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMock(repo)
			s := newTestService(repo, tt.cfg)

			ts, err := s.Save(context.Background(), tt.username, tt.data)

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.False(t, ts.IsZero())
			} else if tt.wantCode != "" {
				assert.ErrorIs(t, err, tt.wantErr)
				var de *DomainError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, tt.wantCode, de.Code)
			} else {
				assert.EqualError(t, err, tt.wantErr.Error())
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "user:CHLJ", Key("CHLJ"))
	assert.NotEqual(t, Key("a"), Key("b"))
}
