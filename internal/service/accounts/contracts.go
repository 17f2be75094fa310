package accounts

import (
	"context"

	runCycle "github.com/m04kA/CDC-BookingBot/internal/usecase/run_cycle"
)

// CycleRunner интерфейс use case одного цикла мониторинга
type CycleRunner interface {
	Execute(ctx context.Context, req *runCycle.Request) (*runCycle.CycleReport, error)
}

// Journal интерфейс журнала циклов (опциональное хранилище).
// Ошибки журнала логируются и не влияют на работу воркеров.
type Journal interface {
	RecordCycle(ctx context.Context, report *runCycle.CycleReport) error
}

// Metrics интерфейс метрик сервиса
type Metrics interface {
	IncCycle(account, result string)
	ObserveCycleDuration(account string, seconds float64)
	IncReservationAttempt(account, outcome string)
	IncSlotSkipped(account, reason string)
	IncFetchError(account string)
	WorkerStarted()
	WorkerFinished()
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
