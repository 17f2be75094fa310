package run_cycle

import (
	"sync"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
)

// DailyQuotaTracker счетчик уроков на дату для ОДНОГО аккаунта в пределах
// ОДНОГО цикла. Инициализируется из забронированных сессий, инкрементируется
// успешными резервациями. Не разделяется между аккаунтами: у каждого аккаунта
// свой трекер и своя квота.
//
// Все операции атомарны относительно друг друга, поэтому внутри фазы
// RESERVING инкремент от TryReserve виден следующей проверке счетчика.
type DailyQuotaTracker struct {
	mu     sync.Mutex
	counts map[string]int // ключ: дата YYYY-MM-DD
}

// NewDailyQuotaTracker создает трекер, засеянный уже забронированными сессиями
func NewDailyQuotaTracker(booked []domain.BookedSession) *DailyQuotaTracker {
	counts := make(map[string]int, len(booked))
	for _, b := range booked {
		counts[b.DateKey()]++
	}
	return &DailyQuotaTracker{counts: counts}
}

// Count возвращает количество уроков, отнесенных к дате
// (забронированные до цикла плюс зарезервированные в этом цикле)
func (t *DailyQuotaTracker) Count(dateKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[dateKey]
}

// TryReserve атомарно проверяет квоту на дату и, если она не исчерпана,
// инкрементирует счетчик и возвращает true. При исчерпанной квоте счетчик
// не меняется и возвращается false. Политика без лимита всегда разрешает.
func (t *DailyQuotaTracker) TryReserve(dateKey string, policy domain.BookingPolicy) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if policy.MaxLessonsPerDay != nil && t.counts[dateKey] >= *policy.MaxLessonsPerDay {
		return false
	}
	t.counts[dateKey]++
	return true
}

// Release откатывает один инкремент TryReserve для даты.
// Вызывается при окончательно неудачной попытке бронирования, чтобы квота
// осталась доступной для других слотов. При "needs confirmation" откат не
// выполняется: слот может быть все еще удержан сайтом.
func (t *DailyQuotaTracker) Release(dateKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.counts[dateKey] > 0 {
		t.counts[dateKey]--
	}
}
