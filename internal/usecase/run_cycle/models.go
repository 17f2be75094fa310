package run_cycle

import (
	"time"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
)

// Phase фаза цикла мониторинга одного аккаунта
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseFetching  Phase = "fetching"
	PhaseFiltering Phase = "filtering"
	PhasePlanning  Phase = "planning"
	PhaseReserving Phase = "reserving"
	PhaseReporting Phase = "reporting"
	PhaseFailed    Phase = "failed"
)

// SkipReason причина, по которой слот не был взят в работу
type SkipReason string

const (
	ReasonDateSkipped    SkipReason = "date excluded by policy"
	ReasonWeekdaySkipped SkipReason = "weekday excluded by policy"
	ReasonAvoidWindow    SkipReason = "overlaps avoid-time window"
	ReasonAlreadyBooked  SkipReason = "already booked"
	ReasonMalformed      SkipReason = "malformed slot data"
	ReasonQuotaExceeded  SkipReason = "quota exceeded"
)

// Request параметры одного цикла мониторинга
type Request struct {
	// Account учетная запись, для которой выполняется цикл
	Account domain.Account

	// Policy эффективная политика ограничений (уже после ResolvePolicy)
	Policy domain.BookingPolicy

	// SlotsPerType максимум попыток бронирования на тип сессии за цикл
	SlotsPerType map[domain.SessionType]int
}

// SkippedSlot слот, исключенный при фильтрации или планировании, с причиной
type SkippedSlot struct {
	Slot   domain.SessionSlot
	Reason SkipReason
}

// FailedAttempt неудачная попытка бронирования
type FailedAttempt struct {
	Slot  domain.SessionSlot
	Error string
}

// CycleReport итог одного цикла мониторинга.
// Каждый пропуск и каждая ошибка попадают в отчет, ничего не теряется молча.
type CycleReport struct {
	AccountName string
	StartedAt   time.Time
	FinishedAt  time.Time

	// Phase терминальная фаза цикла: PhaseIdle при успехе, PhaseFailed при ошибке
	Phase Phase

	// FailedPhase фаза, в которой произошла ошибка (если Phase == PhaseFailed)
	FailedPhase Phase
	Error       string

	// AvailableByType количество сырых слотов, полученных с сайта, по типам
	AvailableByType map[domain.SessionType]int

	// EligibleCount количество слотов, прошедших фильтрацию
	EligibleCount int

	// Planned слоты, отобранные планировщиком для попыток бронирования
	Planned []domain.SessionSlot

	Reserved          []domain.SessionSlot
	NeedsConfirmation []domain.SessionSlot
	FailedAttempts    []FailedAttempt
	Skipped           []SkippedSlot
}

// Succeeded возвращает true, если цикл завершился без фатальной ошибки
func (r *CycleReport) Succeeded() bool {
	return r.Phase == PhaseIdle
}

// Result строковый результат цикла для метрик
func (r *CycleReport) Result() string {
	if r.Succeeded() {
		return "success"
	}
	return "failed"
}
