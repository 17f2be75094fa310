package run_cycle

import (
	"context"
	"time"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
)

// SessionClient интерфейс клиента сайта автошколы.
// Логин, капча и разбор ответов сайта скрыты за этим интерфейсом.
type SessionClient interface {
	// FetchAvailableSlots возвращает доступные слоты одного типа в порядке,
	// в котором их отдает сайт (хронологическом)
	FetchAvailableSlots(ctx context.Context, account domain.Account, sessionType domain.SessionType) ([]domain.SessionSlot, error)

	// FetchBookedSessions возвращает уже забронированные сессии аккаунта
	FetchBookedSessions(ctx context.Context, account domain.Account) ([]domain.BookedSession, error)

	// Reserve выполняет бронирование слота на сайте
	Reserve(ctx context.Context, account domain.Account, slot domain.SessionSlot) (domain.ReservationOutcome, error)
}

// Notifier интерфейс отправки уведомлений.
// Ошибки отправки не должны приводить к провалу цикла: вызывающая сторона
// только логирует их.
type Notifier interface {
	// SendCycleSummary отправляет итоговую сводку цикла
	SendCycleSummary(ctx context.Context, accountName string, report *CycleReport) error

	// SendBookingAlert отправляет алерт об успешном бронировании слота
	SendBookingAlert(ctx context.Context, accountName string, slot domain.SessionSlot) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
