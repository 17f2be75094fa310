package run_cycle

import (
	"context"
	"fmt"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
)

// UseCase use case одного цикла мониторинга аккаунта:
// FETCHING -> FILTERING -> PLANNING -> RESERVING -> REPORTING -> IDLE,
// с переходом в FAILED из любой фазы. Ошибка цикла не роняет процесс,
// воркер повторит цикл по следующему расписанию.
type UseCase struct {
	client       SessionClient
	notifier     Notifier
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(client SessionClient, notifier Notifier, logger Logger) *UseCase {
	return &UseCase{
		client:       client,
		notifier:     notifier,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет один цикл мониторинга.
// Возвращаемый отчет заполнен и при ошибке (Phase == PhaseFailed);
// сама ошибка также возвращается для журнала вызывающей стороны.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*CycleReport, error) {
	report := &CycleReport{
		AccountName:     req.Account.Name,
		StartedAt:       uc.timeProvider.Now(),
		AvailableByType: make(map[domain.SessionType]int, len(req.Account.MonitoredTypes)),
	}

	if err := validateRequest(req); err != nil {
		uc.logger.Warn("RunCycle [%s]: validation failed: %v", req.Account.Name, err)
		return uc.fail(ctx, report, PhaseFetching, err), err
	}

	var (
		slots    []domain.SessionSlot
		booked   []domain.BookedSession
		eligible []domain.SessionSlot
		quota    *DailyQuotaTracker
	)

	phase := PhaseFetching
	for {
		switch phase {
		case PhaseFetching:
			var err error
			slots, booked, err = uc.fetch(ctx, req, report)
			if err != nil {
				return uc.fail(ctx, report, phase, err), err
			}
			phase = PhaseFiltering

		case PhaseFiltering:
			var skipped []SkippedSlot
			eligible, skipped = filterEligibleSlots(slots, req.Policy, booked)
			report.EligibleCount = len(eligible)
			report.Skipped = append(report.Skipped, skipped...)
			uc.logger.Info("RunCycle [%s]: %d of %d slots eligible after filtering",
				req.Account.Name, len(eligible), len(slots))
			phase = PhasePlanning

		case PhasePlanning:
			quota = NewDailyQuotaTracker(booked)
			var skipped []SkippedSlot
			report.Planned, skipped = planReservations(eligible, req.SlotsPerType, quota, req.Policy)
			report.Skipped = append(report.Skipped, skipped...)
			uc.logger.Info("RunCycle [%s]: planned %d reservation attempts",
				req.Account.Name, len(report.Planned))
			phase = PhaseReserving

		case PhaseReserving:
			uc.reserve(ctx, req, report, quota)
			phase = PhaseReporting

		case PhaseReporting:
			report.Phase = PhaseIdle
			report.FinishedAt = uc.timeProvider.Now()
			uc.report(ctx, req.Account.Name, report)
			return report, nil
		}
	}
}

// fetch выполняет фазу FETCHING: списки доступных слотов по каждому
// отслеживаемому типу плюс забронированные сессии аккаунта
func (uc *UseCase) fetch(ctx context.Context, req *Request, report *CycleReport) ([]domain.SessionSlot, []domain.BookedSession, error) {
	var slots []domain.SessionSlot
	for _, sessionType := range req.Account.MonitoredTypes {
		typed, err := uc.client.FetchAvailableSlots(ctx, req.Account, sessionType)
		if err != nil {
			uc.logger.Error("RunCycle [%s]: fetch %s slots failed: %v", req.Account.Name, sessionType, err)
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrFetchSlots, sessionType, err)
		}
		report.AvailableByType[sessionType] = len(typed)
		slots = append(slots, typed...)
	}

	booked, err := uc.client.FetchBookedSessions(ctx, req.Account)
	if err != nil {
		uc.logger.Error("RunCycle [%s]: fetch booked sessions failed: %v", req.Account.Name, err)
		return nil, nil, fmt.Errorf("%w: %v", ErrFetchBooked, err)
	}

	uc.logger.Info("RunCycle [%s]: fetched %d available slots, %d booked sessions",
		req.Account.Name, len(slots), len(booked))
	return slots, booked, nil
}

// reserve выполняет фазу RESERVING: попытки бронирования по плану.
// Каждая попытка независима: ошибка одной не прерывает остальные.
// Запросы на остановку воркера проверяются только между попытками, чтобы
// не бросить наполовину отправленное бронирование.
func (uc *UseCase) reserve(ctx context.Context, req *Request, report *CycleReport, quota *DailyQuotaTracker) {
	for _, slot := range report.Planned {
		outcome, err := uc.client.Reserve(ctx, req.Account, slot)
		if err != nil {
			// Окончательный провал: откатываем инкремент квоты, чтобы
			// следующий цикл мог занять это место
			quota.Release(slot.DateKey())
			report.FailedAttempts = append(report.FailedAttempts, FailedAttempt{
				Slot:  slot,
				Error: err.Error(),
			})
			uc.logger.Error("RunCycle [%s]: reserve %s %s-%s failed: %v",
				req.Account.Name, slot.DateKey(), slot.StartTime, slot.EndTime, err)
			continue
		}

		switch outcome {
		case domain.OutcomeReserved:
			report.Reserved = append(report.Reserved, slot)
			uc.logger.Info("RunCycle [%s]: reserved %s slot %s %s-%s",
				req.Account.Name, slot.Type, slot.DateKey(), slot.StartTime, slot.EndTime)
			if err := uc.notifier.SendBookingAlert(ctx, req.Account.Name, slot); err != nil {
				uc.logger.Warn("RunCycle [%s]: booking alert failed: %v", req.Account.Name, err)
			}

		case domain.OutcomeNeedsConfirmation:
			// Слот может быть все еще удержан сайтом, квоту не откатываем
			report.NeedsConfirmation = append(report.NeedsConfirmation, slot)
			uc.logger.Warn("RunCycle [%s]: slot %s %s-%s needs manual confirmation",
				req.Account.Name, slot.DateKey(), slot.StartTime, slot.EndTime)

		default:
			quota.Release(slot.DateKey())
			report.FailedAttempts = append(report.FailedAttempts, FailedAttempt{
				Slot:  slot,
				Error: "reservation rejected by site",
			})
			uc.logger.Warn("RunCycle [%s]: reservation of %s %s-%s rejected",
				req.Account.Name, slot.DateKey(), slot.StartTime, slot.EndTime)
		}
	}
}

// report выполняет фазу REPORTING: одно уведомление со сводкой цикла.
// Ошибка отправки уведомления не проваливает цикл.
func (uc *UseCase) report(ctx context.Context, accountName string, report *CycleReport) {
	if err := uc.notifier.SendCycleSummary(ctx, accountName, report); err != nil {
		uc.logger.Warn("RunCycle [%s]: cycle summary notification failed: %v", accountName, err)
	}
}

// fail переводит цикл в состояние FAILED с фиксацией фазы и ошибки.
// Сводка отправляется и для проваленного цикла: пользователь должен видеть
// каждую ошибку.
func (uc *UseCase) fail(ctx context.Context, report *CycleReport, phase Phase, err error) *CycleReport {
	report.Phase = PhaseFailed
	report.FailedPhase = phase
	report.Error = err.Error()
	report.FinishedAt = uc.timeProvider.Now()
	uc.report(ctx, report.AccountName, report)
	return report
}
