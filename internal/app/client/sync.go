package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chronicles/internal/domain/dataset"
	"chronicles/internal/domain/session"

	"golang.org/x/exp/slog"
)

// Status - состояние индикатора синхронизации.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// SyncOptions - тайминги и пределы оркестратора.
type SyncOptions struct {
	QuietWindow    time.Duration
	SuccessDisplay time.Duration
	ErrorDisplay   time.Duration
	MaxBytes       int64
}

func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		QuietWindow:    3 * time.Second,
		SuccessDisplay: 2 * time.Second,
		ErrorDisplay:   3 * time.Second,
		MaxBytes:       45 << 20,
	}
}

// SyncStats статистика синхронизации за время жизни процесса
type SyncStats struct {
	TotalPushes    int       `json:"total_pushes"`
	TotalPulls     int       `json:"total_pulls"`
	TotalErrors    int       `json:"total_errors"`
	TotalAborted   int       `json:"total_aborted"`
	LastSuccessful time.Time `json:"last_successful"`
	LastFailed     time.Time `json:"last_failed"`
	LastMessage    string    `json:"last_message"`
	LastSyncTime   string    `json:"last_sync_time,omitempty"`
}

const maxMutateAttempts = 3

var ErrConcurrentUpdate = errors.New("dataset was replaced concurrently")

// StatusEvent - смена состояния индикатора.
type StatusEvent struct {
	Status  Status
	Message string
}

// SyncService держит набор данных в памяти, пишет изменения в локальное хранилище
// и синхронизирует их с облаком.
//
// Каждое обращение к облаку получает новый номер запроса и отменяет предыдущее.
// Результат применяется, только если его номер все еще последний.
type SyncService struct {
	store  *LocalStore
	remote Remote
	conn   Connectivity
	clock  Clock
	opts   SyncOptions
	log    *slog.Logger

	// persistMu упорядочивает запись в локальное хранилище, mu берется после него
	persistMu   sync.Mutex
	mu          sync.Mutex
	data        dataset.Dataset
	dataGen     uint64
	sess        *session.Session
	status      Status
	message     string
	statusGen   uint64
	statusTimer Timer
	pushTimer   Timer
	pushGen     uint64
	requestID   uint64
	cancel      context.CancelFunc
	stats       SyncStats
	listeners   []func(StatusEvent)
	onData      []func(dataset.Dataset)

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewSyncService создает оркестратор. clock == nil означает системное время.
func NewSyncService(store *LocalStore, remote Remote, conn Connectivity, clock Clock, opts SyncOptions, log *slog.Logger) *SyncService {
	if clock == nil {
		clock = RealClock()
	}
	def := DefaultSyncOptions()
	if opts.QuietWindow <= 0 {
		opts.QuietWindow = def.QuietWindow
	}
	if opts.SuccessDisplay <= 0 {
		opts.SuccessDisplay = def.SuccessDisplay
	}
	if opts.ErrorDisplay <= 0 {
		opts.ErrorDisplay = def.ErrorDisplay
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = def.MaxBytes
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SyncService{
		store:      store,
		remote:     remote,
		conn:       conn,
		clock:      clock,
		opts:       opts,
		log:        log.With(slog.String("component", "sync")),
		status:     StatusIdle,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	s.data.Normalize()
	return s
}

// Boot читает локальное хранилище. Отсутствующие коллекции получают стартовые данные
// и сразу записываются.
func (s *SyncService) Boot(ctx context.Context) error {
	d, missing := s.store.Load(ctx)
	if len(missing) > 0 {
		seed := dataset.Seed()
		for _, c := range missing {
			d.Replace(c, seed)
		}
	}

	s.mu.Lock()
	s.data = d
	s.dataGen++
	s.mu.Unlock()

	var errs []error
	for _, c := range missing {
		if err := s.store.Save(ctx, c, d); err != nil {
			errs = append(errs, err)
		}
	}
	if len(missing) > 0 {
		s.log.Debug("seeded collections", "collections", missing)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	return nil
}

// SetSession устанавливает контекст вошедшего пользователя.
func (s *SyncService) SetSession(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
}

// ClearSession сбрасывает сессию, отменяет запрос в полете и отложенную отправку.
func (s *SyncService) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
	s.stopPushLocked()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.requestID++
}

func (s *SyncService) Session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// Data возвращает копию текущего набора данных.
func (s *SyncService) Data() dataset.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

func (s *SyncService) Status() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.message
}

func (s *SyncService) Stats() SyncStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// OnStatus подписывает fn на смену состояния индикатора.
func (s *SyncService) OnStatus(fn func(StatusEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// OnData подписывает fn на замену набора данных целиком (pull, вход, импорт, перечитывание).
func (s *SyncService) OnData(fn func(dataset.Dataset)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onData = append(s.onData, fn)
}

// PendingPush сообщает, взведен ли таймер автоотправки.
func (s *SyncService) PendingPush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushTimer != nil
}

// Mutate применяет fn к копии набора данных и сохраняет коллекцию c, затем взводит автоотправку.
// Ошибка fn оставляет набор данных без изменений. Если набор был заменен целиком (pull,
// вход, импорт, перечитывание), пока работала fn, она повторяется на новых данных.
func (s *SyncService) Mutate(ctx context.Context, c dataset.Collection, fn func(d *dataset.Dataset) error) error {
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		s.mu.Lock()
		gen := s.dataGen
		next := s.data.Clone()
		s.mu.Unlock()

		if err := fn(&next); err != nil {
			return err
		}

		s.persistMu.Lock()
		s.mu.Lock()
		if gen != s.dataGen {
			s.mu.Unlock()
			s.persistMu.Unlock()
			s.log.Debug("dataset replaced during mutate, retrying", "collection", c)
			continue
		}
		s.data.Replace(c, next)
		s.dataGen++
		snapshot := s.data.Clone()
		s.mu.Unlock()

		// ошибка записи не откатывает изменение в памяти
		if err := s.store.Save(ctx, c, snapshot); err != nil {
			s.log.Error("persist collection", "collection", c, "error", err)
		}
		s.persistMu.Unlock()

		s.ScheduleAutoPush()
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConcurrentUpdate, c)
}

// ScheduleAutoPush (пере)взводит таймер тихого окна. Без сессии ничего не делает.
func (s *SyncService) ScheduleAutoPush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sess.Ready() {
		return
	}
	s.stopPushLocked()
	gen := s.pushGen
	s.pushTimer = s.clock.AfterFunc(s.opts.QuietWindow, func() { s.autoPush(gen) })
}

func (s *SyncService) stopPushLocked() {
	s.pushGen++
	if s.pushTimer != nil {
		s.pushTimer.Stop()
		s.pushTimer = nil
	}
}

func (s *SyncService) autoPush(gen uint64) {
	s.mu.Lock()
	if gen != s.pushGen {
		// таймер успели перевзвести или остановить
		s.mu.Unlock()
		return
	}
	s.pushTimer = nil
	ready := s.sess.Ready() && s.conn.Online()
	s.mu.Unlock()

	if !ready {
		s.log.Debug("auto push skipped")
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.Push(s.baseCtx)
}

// Flush немедленно выполняет отложенную автоотправку. ok == false, если отправлять нечего.
func (s *SyncService) Flush(ctx context.Context) (Result, bool) {
	s.mu.Lock()
	pending := s.pushTimer != nil
	s.stopPushLocked()
	ready := s.sess.Ready() && s.conn.Online()
	s.mu.Unlock()

	if !pending || !ready {
		return Result{}, false
	}
	return s.Push(ctx), true
}

// Push отправляет текущий набор данных в облако.
// Слишком большой набор отклоняется до начала запроса и не отменяет запрос в полете.
func (s *SyncService) Push(ctx context.Context) Result {
	s.mu.Lock()
	d := s.data.Clone()
	sess := s.sess
	s.mu.Unlock()

	size, err := EstimateSize(d)
	if err != nil {
		res := Result{Message: fmt.Sprintf("не удалось сериализовать данные: %v", err), Reason: ReasonValidation}
		s.fail(res)
		return res
	}
	if int64(size) > s.opts.MaxBytes {
		s.log.Warn("dataset too large for cloud sync", "bytes", size, "limit", s.opts.MaxBytes)
		res := Result{Message: TooLargeMessage(size), Reason: ReasonTooLarge, Size: size}
		s.fail(res)
		return res
	}

	id, reqCtx := s.begin(ctx)
	res := s.remote.SaveToCloud(reqCtx, sess, d)
	if !s.finish(id, res) {
		return abortedResult(res)
	}

	s.mu.Lock()
	s.stats.TotalPushes++
	s.mu.Unlock()

	if res.Success {
		s.succeed(res.Message)
	} else {
		s.fail(res)
	}
	return res
}

// Pull заменяет все семь коллекций облачной копией.
// Пустое облако и ошибки оставляют локальные данные как есть.
func (s *SyncService) Pull(ctx context.Context) Result {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	id, reqCtx := s.begin(ctx)
	res := s.remote.LoadFromCloud(reqCtx, sess)
	if !s.finish(id, res) {
		return abortedResult(res)
	}

	s.mu.Lock()
	s.stats.TotalPulls++
	s.mu.Unlock()

	switch {
	case !res.Success:
		s.fail(res)
	case res.Data == nil:
		res.Message = "В облаке нет данных для загрузки"
		s.succeed(res.Message)
	default:
		s.replace(ctx, res.Data.Dataset, res.Data.LastSyncTime)
		s.succeed(res.Message)
	}
	return res
}

// Reconcile выполняется при входе: загружает облачный снимок, сливает его с локальными
// данными и взводит автоотправку, чтобы облако получило объединенный набор.
func (s *SyncService) Reconcile(ctx context.Context) Result {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	id, reqCtx := s.begin(ctx)
	res := s.remote.LoadFromCloud(reqCtx, sess)
	if !s.finish(id, res) {
		return abortedResult(res)
	}

	if !res.Success {
		s.fail(res)
		return res
	}

	if res.Data != nil {
		local := s.Data()
		overwritten := 0
		for _, d := range dataset.Compare(local, res.Data.Dataset) {
			overwritten += d.Changed
		}
		if overwritten > 0 {
			s.log.Warn("local edits replaced by cloud copy", "records", overwritten)
		}

		merged := dataset.Merge(local, res.Data, s.clock.Now())
		s.replace(ctx, merged.Dataset, merged.LastSyncTime)
		res.Data = &merged
		res.Message = "Данные объединены с облаком"
	}
	s.succeed(res.Message)
	s.ScheduleAutoPush()
	return res
}

// Compare загружает облачную копию и считает расхождения с локальной.
func (s *SyncService) Compare(ctx context.Context) ([]dataset.Diff, Result) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	id, reqCtx := s.begin(ctx)
	res := s.remote.LoadFromCloud(reqCtx, sess)
	if !s.finish(id, res) {
		return nil, abortedResult(res)
	}
	if !res.Success {
		s.fail(res)
		return nil, res
	}
	s.setStatus(StatusIdle, "", 0)

	var remote dataset.Dataset
	if res.Data != nil {
		remote = res.Data.Dataset
	}
	remote.Normalize()
	return dataset.Compare(s.Data(), remote), res
}

// Export возвращает документ резервной копии.
func (s *SyncService) Export() dataset.Export {
	return dataset.NewExport(s.Data(), s.clock.Now())
}

// Import заменяет коллекции, присутствующие в файле. Остальные не меняются.
func (s *SyncService) Import(ctx context.Context, raw []byte) ([]dataset.Collection, error) {
	imp, err := dataset.ParseImport(raw)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	s.persistMu.Lock()
	s.mu.Lock()
	applied := imp.ApplyTo(&s.data)
	s.dataGen++
	snapshot := s.data.Clone()
	s.mu.Unlock()

	for _, c := range applied {
		if err := s.store.Save(ctx, c, snapshot); err != nil {
			s.log.Error("persist imported collection", "collection", c, "error", err)
		}
	}
	s.persistMu.Unlock()

	s.notifyData(snapshot)
	s.ScheduleAutoPush()
	return applied, nil
}

// Reload перечитывает локальное хранилище после записи другим процессом.
// Если данные изменились, взводится автоотправка.
func (s *SyncService) Reload(ctx context.Context) bool {
	s.persistMu.Lock()
	d, missing := s.store.Load(ctx)

	s.mu.Lock()
	for _, c := range missing {
		d.Replace(c, s.data)
	}
	changed := !sameCollections(d, s.data)
	if changed {
		s.data = d
		s.dataGen++
	}
	snapshot := s.data.Clone()
	s.mu.Unlock()
	s.persistMu.Unlock()

	if !changed {
		return false
	}
	s.log.Debug("local store reloaded")
	s.notifyData(snapshot)
	s.ScheduleAutoPush()
	return true
}

// sameCollections сравнивает наборы в том виде, в каком они лежат в хранилище:
// nil и пустой срез при этом не различаются.
func sameCollections(a, b dataset.Dataset) bool {
	for _, c := range dataset.Collections {
		ra, errA := a.MarshalCollection(c)
		rb, errB := b.MarshalCollection(c)
		if errA != nil || errB != nil || !bytes.Equal(ra, rb) {
			return false
		}
	}
	return true
}

// Close отменяет таймеры и запрос в полете и ждет завершения автоотправки.
func (s *SyncService) Close() {
	s.mu.Lock()
	s.stopPushLocked()
	if s.statusTimer != nil {
		s.statusTimer.Stop()
		s.statusTimer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.baseCancel()
	s.wg.Wait()
}

// begin отменяет предыдущий запрос и выдает номер новому.
func (s *SyncService) begin(parent context.Context) (uint64, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.requestID++
	id := s.requestID
	s.cancel = cancel
	s.mu.Unlock()

	s.setStatus(StatusSyncing, "", 0)
	return id, ctx
}

// finish сообщает, можно ли применять результат запроса id.
func (s *SyncService) finish(id uint64, res Result) bool {
	s.mu.Lock()
	current := id == s.requestID
	if current && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if !current || res.Aborted {
		s.stats.TotalAborted++
	}
	s.mu.Unlock()

	if !current {
		s.log.Debug("stale sync result dropped", "request_id", id)
		return false
	}
	if res.Aborted {
		// отменил сам вызывающий, более нового запроса нет
		s.setStatus(StatusIdle, "", 0)
		return false
	}
	return true
}

func abortedResult(res Result) Result {
	return Result{Aborted: true, Message: "Запрос отменен", Reason: res.Reason}
}

func (s *SyncService) replace(ctx context.Context, d dataset.Dataset, lastSync string) {
	d = d.Clone()
	d.Normalize()

	s.persistMu.Lock()
	s.mu.Lock()
	s.data = d
	s.dataGen++
	s.stats.LastSyncTime = lastSync
	snapshot := s.data.Clone()
	s.mu.Unlock()

	if err := s.store.SaveAll(ctx, snapshot); err != nil {
		s.log.Error("persist dataset", "error", err)
	}
	s.persistMu.Unlock()
	s.notifyData(snapshot)
}

func (s *SyncService) succeed(msg string) {
	s.mu.Lock()
	s.stats.LastSuccessful = s.clock.Now()
	s.stats.LastMessage = msg
	s.mu.Unlock()

	s.log.Info("sync succeeded", "message", msg)
	s.setStatus(StatusSuccess, msg, s.opts.SuccessDisplay)
}

func (s *SyncService) fail(res Result) {
	s.mu.Lock()
	s.stats.TotalErrors++
	s.stats.LastFailed = s.clock.Now()
	s.stats.LastMessage = res.Message
	s.mu.Unlock()

	s.log.Warn("sync failed", "reason", res.Reason, "message", res.Message)
	s.setStatus(StatusError, res.Message, s.opts.ErrorDisplay)
}

// setStatus меняет состояние и при display > 0 возвращает его в idle по таймеру.
// Таймер предыдущего состояния не может сбросить более новое: проверяется поколение.
func (s *SyncService) setStatus(st Status, msg string, display time.Duration) {
	s.mu.Lock()
	if s.statusTimer != nil {
		s.statusTimer.Stop()
		s.statusTimer = nil
	}
	s.statusGen++
	gen := s.statusGen
	s.status = st
	s.message = msg
	if display > 0 {
		s.statusTimer = s.clock.AfterFunc(display, func() {
			s.mu.Lock()
			if gen != s.statusGen {
				s.mu.Unlock()
				return
			}
			s.statusGen++
			s.status = StatusIdle
			s.message = ""
			s.statusTimer = nil
			s.mu.Unlock()
			s.notifyStatus(StatusEvent{Status: StatusIdle})
		})
	}
	s.mu.Unlock()

	s.notifyStatus(StatusEvent{Status: st, Message: msg})
}

func (s *SyncService) notifyStatus(ev StatusEvent) {
	s.mu.Lock()
	listeners := append([]func(StatusEvent){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func (s *SyncService) notifyData(d dataset.Dataset) {
	s.mu.Lock()
	listeners := append([]func(dataset.Dataset){}, s.onData...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(d)
	}
}
