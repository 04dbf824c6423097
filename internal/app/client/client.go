package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chronicles/internal/app/client/config"
	"chronicles/internal/app/client/imaging"
	"chronicles/internal/app/client/narrator"
	"chronicles/internal/domain/session"
	"chronicles/internal/domain/user"
	"chronicles/internal/infrastructure/storage"

	"golang.org/x/exp/slog"
)

// пароль семьи по умолчанию, если AUTH_PASSWORD_HASH не задан
const defaultPassword = "20250119"

const (
	probeInterval = 30 * time.Second
	watchDelay    = 500 * time.Millisecond
)

// App связывает локальное хранилище, сессию, облачный клиент и оркестратор синхронизации.
type App struct {
	config   *config.Config
	log      *slog.Logger
	kv       storage.KV
	store    *LocalStore
	remote   *remoteClient
	monitor  *Monitor
	sessions session.Servicer
	sync     *SyncService
	narrator *narrator.Narrator
	ingester imaging.Ingester

	authOnce sync.Once
	auth     user.Servicer
	authErr  error
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	kv := OpenLocalKV(cfg, log)
	store := NewLocalStore(kv, log)

	monitor := NewMonitor(nil, probeInterval, log)
	remote := NewRemoteClient(cfg, monitor, log)
	monitor.prober = remote

	svc := NewSyncService(store, remote, monitor, RealClock(), SyncOptions{
		QuietWindow:    cfg.Sync.QuietWindow,
		SuccessDisplay: cfg.Sync.SuccessDisplay,
		ErrorDisplay:   cfg.Sync.ErrorDisplay,
		MaxBytes:       cfg.Sync.MaxBytes,
	}, log)

	app := &App{
		config:   cfg,
		log:      log,
		kv:       kv,
		store:    store,
		remote:   remote,
		monitor:  monitor,
		sessions: session.NewService(session.NewRepo(kv, log), log),
		sync:     svc,
		narrator: narrator.New(cfg.AI, log),
		ingester: imaging.NewIngester(),
	}

	if err := svc.Boot(ctx); err != nil {
		log.Warn("Не удалось записать стартовые данные", "error", err)
	}

	sess, err := app.sessions.Restore(ctx)
	switch {
	case err == nil:
		svc.SetSession(sess)
		log.Debug("Сессия восстановлена", "username", sess.Username)
	case errors.Is(err, session.ErrNoSession):
	default:
		log.Warn("Не удалось восстановить сессию", "error", err)
	}

	return app, nil
}

func (a *App) Config() *config.Config { return a.config }
func (a *App) Sync() *SyncService { return a.sync }
func (a *App) Narrator() *narrator.Narrator { return a.narrator }
func (a *App) Ingester() imaging.Ingester { return a.ingester }
func (a *App) Session() *session.Session { return a.sync.Session() }
func (a *App) IsAuthenticated() bool { return a.sync.Session().Ready() }

// authenticator собирается при первом входе: bcrypt-хэш пароля по умолчанию считается не бесплатно.
func (a *App) authenticator() (user.Servicer, error) {
	a.authOnce.Do(func() {
		validator := user.NewPasswordValidator()
		hash := a.config.Auth.PasswordHash
		if hash == "" {
			hash, a.authErr = user.HashPassword(validator, defaultPassword)
			if a.authErr != nil {
				return
			}
		}
		repo := user.NewStaticRepository(user.User{Login: a.config.Auth.Username, Password: hash})
		a.auth = user.NewService(repo, validator, a.log)
	})
	return a.auth, a.authErr
}

// Login проверяет учетные данные, открывает сессию и сводит локальные данные с облаком.
// Неудача синхронизации не отменяет вход: она видна в результате.
func (a *App) Login(ctx context.Context, login, password string) (Result, error) {
	auth, err := a.authenticator()
	if err != nil {
		return Result{}, err
	}
	u, err := auth.Authenticate(ctx, login, password)
	if err != nil {
		return Result{}, err
	}

	sess, err := a.sessions.Open(ctx, u.Login)
	if err != nil {
		return Result{}, err
	}
	a.sync.SetSession(sess)

	a.log.Info("Вход выполнен успешно", "login", u.Login)
	return a.sync.Reconcile(ctx), nil
}

// Logout закрывает сессию. Локальные данные остаются.
func (a *App) Logout(ctx context.Context) error {
	a.sync.ClearSession()
	if err := a.sessions.Close(ctx); err != nil {
		return fmt.Errorf("ошибка выхода: %w", err)
	}
	return nil
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection(ctx context.Context) bool {
	return a.monitor.Check(ctx)
}

// Watch держит синхронизацию живой до отмены ctx: опрашивает сервер, перечитывает
// хранилище при чужих изменениях и после восстановления сети взводит автоотправку.
func (a *App) Watch(ctx context.Context) error {
	a.monitor.OnChange(func(online bool) {
		if online {
			a.sync.ScheduleAutoPush()
		}
	})

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.monitor.Run(ctx)
	}()

	dir, match, ok := WatchTarget(a.kv)
	if !ok {
		a.log.Info("Хранилище в памяти, наблюдение за файлами отключено")
		<-ctx.Done()
		return nil
	}
	w, err := NewStoreWatcher(dir, match, watchDelay, a.log)
	if err != nil {
		return err
	}

	a.log.Info("Наблюдение запущено", "dir", dir, "server", a.config.ServerAddress)
	return w.Run(ctx, func() {
		a.sync.Reload(ctx)
	})
}

// Shutdown отправляет отложенные изменения и освобождает хранилище.
func (a *App) Shutdown(ctx context.Context) {
	if res, ok := a.sync.Flush(ctx); ok && !res.Success && !res.Aborted {
		a.log.Warn("Отложенная синхронизация не удалась", "message", res.Message)
	}
	a.sync.Close()
	if err := a.kv.Close(); err != nil {
		a.log.Warn("Ошибка закрытия хранилища", "error", err)
	}
}
