package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
	runCycle "github.com/m04kA/CDC-BookingBot/internal/usecase/run_cycle"
)

// Service менеджер аккаунтов: по одному долгоживущему воркеру на каждый
// включенный аккаунт. Воркеры изолированы друг от друга: общих политик и
// квот нет, единственная общая точка это гейт конкурентности.
type Service struct {
	cfg     Config
	cycle   CycleRunner
	journal Journal
	metrics Metrics
	logger  Logger

	gate *ConcurrencyGate
	wg   sync.WaitGroup

	mu       sync.RWMutex
	statuses map[string]*AccountStatus
}

// NewService создает менеджер аккаунтов.
// journal и metrics могут быть nil, если соответствующая подсистема выключена.
func NewService(cfg Config, cycle CycleRunner, journal Journal, metrics Metrics, logger Logger) *Service {
	statuses := make(map[string]*AccountStatus, len(cfg.Accounts))
	for _, account := range cfg.Accounts {
		statuses[account.Name] = &AccountStatus{
			Name:    account.Name,
			Enabled: account.Enabled,
		}
	}

	return &Service{
		cfg:      cfg,
		cycle:    cycle,
		journal:  journal,
		metrics:  metrics,
		logger:   logger,
		gate:     NewConcurrencyGate(cfg.MaxConcurrentAccounts),
		statuses: statuses,
	}
}

// Start запускает воркеров для всех включенных аккаунтов.
// Старты разнесены по времени (stagger), чтобы не открывать все сессии разом.
func (s *Service) Start(ctx context.Context) {
	started := 0
	for _, account := range s.cfg.Accounts {
		if !account.Enabled {
			s.logger.Info("Account %s is disabled, skipping", account.Name)
			continue
		}

		delay := time.Duration(started) * s.cfg.Stagger
		started++

		s.wg.Add(1)
		go s.worker(ctx, account, delay)
	}

	s.logger.Info("Started %d account workers (concurrency limit: %d)",
		started, s.cfg.MaxConcurrentAccounts)
}

// Wait блокируется до завершения всех воркеров (после отмены контекста)
func (s *Service) Wait() {
	s.wg.Wait()
}

// worker главный цикл одного аккаунта. Остановка происходит только между
// циклами: начатый цикл доводится до конца, чтобы не бросить наполовину
// отправленное бронирование.
func (s *Service) worker(ctx context.Context, account domain.Account, initialDelay time.Duration) {
	defer s.wg.Done()

	if initialDelay > 0 {
		s.logger.Info("Account %s scheduled to start in %s", account.Name, initialDelay)
		if !sleepCtx(ctx, initialDelay) {
			return
		}
	}

	for {
		// Окно тишины действует и для самого первого цикла: процесс,
		// запущенный внутри окна, не делает ни одного запроса до его конца
		if !s.awaitBlackoutEnd(ctx, account.Name) {
			return
		}

		release, ok := s.gate.Acquire(ctx)
		if !ok {
			return
		}

		s.runOnce(ctx, account)
		release()

		if ctx.Err() != nil {
			return
		}

		next := s.cfg.Schedule.NextRun(time.Now())
		s.setNextRun(account.Name, next)
		s.logger.Info("Account %s: next cycle at %s", account.Name, next.Format("15:04:05"))

		if !sleepCtx(ctx, time.Until(next)) {
			return
		}
	}
}

// awaitBlackoutEnd ждет окончания окна тишины, если текущий момент попадает
// в него; false = контекст отменен во время ожидания
func (s *Service) awaitBlackoutEnd(ctx context.Context, accountName string) bool {
	now := time.Now()
	if !s.cfg.Schedule.InBlackout(now) {
		return ctx.Err() == nil
	}

	end := s.cfg.Schedule.blackoutEnd(now)
	s.setNextRun(accountName, end)
	s.logger.Info("Account %s: blackout window active, sleeping until %s",
		accountName, end.Format("15:04:05"))
	return sleepCtx(ctx, time.Until(end))
}

// runOnce выполняет один цикл мониторинга аккаунта и фиксирует результат
// в статусе, журнале и метриках
func (s *Service) runOnce(ctx context.Context, account domain.Account) {
	if s.metrics != nil {
		s.metrics.WorkerStarted()
		defer s.metrics.WorkerFinished()
	}

	req := &runCycle.Request{
		Account:      account,
		Policy:       domain.ResolvePolicy(s.cfg.GlobalPolicy, account.Policy),
		SlotsPerType: s.cfg.SlotsPerType,
	}

	startedAt := time.Now()
	report, err := s.cycle.Execute(ctx, req)
	if err != nil {
		// Ошибка цикла уже зафиксирована в отчете; воркер повторит
		// по следующему расписанию
		s.logger.Warn("Account %s: cycle failed: %v", account.Name, err)
	}

	if report == nil {
		return
	}

	s.setLastReport(account.Name, report)
	s.recordMetrics(account.Name, report, time.Since(startedAt))

	if s.journal != nil {
		if jerr := s.journal.RecordCycle(ctx, report); jerr != nil {
			s.logger.Warn("Account %s: journal write failed: %v", account.Name, jerr)
		}
	}
}

// recordMetrics переносит итоги отчета в метрики
func (s *Service) recordMetrics(accountName string, report *runCycle.CycleReport, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	s.metrics.IncCycle(accountName, report.Result())
	s.metrics.ObserveCycleDuration(accountName, elapsed.Seconds())

	if report.Phase == runCycle.PhaseFailed && report.FailedPhase == runCycle.PhaseFetching {
		s.metrics.IncFetchError(accountName)
	}

	for range report.Reserved {
		s.metrics.IncReservationAttempt(accountName, string(domain.OutcomeReserved))
	}
	for range report.NeedsConfirmation {
		s.metrics.IncReservationAttempt(accountName, string(domain.OutcomeNeedsConfirmation))
	}
	for range report.FailedAttempts {
		s.metrics.IncReservationAttempt(accountName, string(domain.OutcomeFailed))
	}
	for _, skipped := range report.Skipped {
		s.metrics.IncSlotSkipped(accountName, string(skipped.Reason))
	}
}

// Statuses возвращает снимок состояния всех аккаунтов для ops-эндпоинта
func (s *Service) Statuses() []AccountStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AccountStatus, 0, len(s.statuses))
	for _, account := range s.cfg.Accounts {
		if status, ok := s.statuses[account.Name]; ok {
			out = append(out, *status)
		}
	}
	return out
}

func (s *Service) setLastReport(name string, report *runCycle.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.statuses[name]; ok {
		status.LastReport = report
	}
}

func (s *Service) setNextRun(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.statuses[name]; ok {
		status.NextRunAt = at
	}
}

// sleepCtx ждет d или отмены контекста; false = контекст отменен
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
