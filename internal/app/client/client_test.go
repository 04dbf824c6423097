package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chronicles/internal/app/client/config"
	"chronicles/internal/domain/dataset"
	"chronicles/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	hash, err := bcrypt.GenerateFromPassword([]byte("20250119"), bcrypt.MinCost)
	require.NoError(t, err)

	return &config.Config{
		Env:           config.EnvLocal,
		ServerAddress: strings.TrimPrefix(serverURL, "http://"),
		ConfigDir:     dir,
		LocalStore:    config.StoreFile,
		DataPath:      filepath.Join(dir, "data"),
		Sync: config.Sync{
			QuietWindow:    time.Hour,
			MaxBytes:       45 << 20,
			SuccessDisplay: time.Second,
			ErrorDisplay:   time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Auth: config.Auth{Username: "CHLJ", PasswordHash: string(hash)},
		AI:   config.AI{Model: "glm-4-flash"},
	}
}

func TestApp_LoginMergesAndPersistsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sync/load":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"data":{"todos":[{"id":"2","text":"B","completed":false}],"lastSyncTime":"2024-01-01T00:00:00.000Z"}}`))
		default:
			_, _ = w.Write([]byte(`{"success":true}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	cfg := testConfig(t, srv.URL)

	app, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	assert.False(t, app.IsAuthenticated())

	require.NoError(t, app.Sync().Mutate(ctx, dataset.CollectionTodos, func(d *dataset.Dataset) error {
		d.Todos = []dataset.Todo{{ID: "1", Text: "A"}}
		return nil
	}))

	_, err = app.Login(ctx, "CHLJ", "wrong-password")
	assert.ErrorIs(t, err, user.ErrInvalidAuth)
	assert.False(t, app.IsAuthenticated())

	res, err := app.Login(ctx, "CHLJ", "20250119")
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.True(t, app.IsAuthenticated())
	assert.Equal(t, []dataset.Todo{{ID: "2", Text: "B"}, {ID: "1", Text: "A"}}, app.Sync().Data().Todos)
	app.Sync().Close()

	// следующий запуск поднимает сессию и данные из хранилища
	again, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	assert.True(t, again.IsAuthenticated())
	assert.Equal(t, "CHLJ", again.Session().Username)
	assert.Len(t, again.Sync().Data().Todos, 2)

	require.NoError(t, again.Logout(ctx))
	assert.False(t, again.IsAuthenticated())
	again.Sync().Close()

	third, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	assert.False(t, third.IsAuthenticated())
	third.Shutdown(ctx)
}

func TestApp_DefaultPasswordHash(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Auth.PasswordHash = ""

	app, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	auth, err := app.authenticator()
	require.NoError(t, err)
	u, err := auth.Authenticate(context.Background(), "CHLJ", defaultPassword)
	require.NoError(t, err)
	assert.Equal(t, "CHLJ", u.Login)
}
