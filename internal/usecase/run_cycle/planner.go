package run_cycle

import (
	"github.com/m04kA/CDC-BookingBot/internal/domain"
)

// planReservations отбирает из допустимых слотов упорядоченный план попыток
// бронирования на этот цикл.
//
// Слоты группируются по типу сессии с сохранением исходного (хронологического)
// порядка, самый ранний слот пробуется первым. Для каждого типа в план
// попадает не больше slotsPerType[type] слотов; каждый кандидат проходит
// атомарную проверку квоты TryReserve. Слот, не прошедший квоту, пропускается
// один раз (без повторов в этом цикле) и возвращается с причиной.
//
// Планировщик не выполняет I/O: внешнее бронирование делает вызывающая
// сторона по возвращенному плану.
func planReservations(
	eligible []domain.SessionSlot,
	slotsPerType map[domain.SessionType]int,
	quota *DailyQuotaTracker,
	policy domain.BookingPolicy,
) ([]domain.SessionSlot, []SkippedSlot) {
	groups := make(map[domain.SessionType][]domain.SessionSlot, len(slotsPerType))
	for _, slot := range eligible {
		groups[slot.Type] = append(groups[slot.Type], slot)
	}

	var plan []domain.SessionSlot
	var skipped []SkippedSlot

	// Обходим типы в фиксированном порядке, чтобы план был детерминированным
	for _, sessionType := range domain.AllSessionTypes {
		limit := slotsPerType[sessionType]
		if limit <= 0 {
			continue
		}

		planned := 0
		for _, slot := range groups[sessionType] {
			if planned >= limit {
				break
			}
			if !quota.TryReserve(slot.DateKey(), policy) {
				skipped = append(skipped, SkippedSlot{Slot: slot, Reason: ReasonQuotaExceeded})
				continue
			}
			plan = append(plan, slot)
			planned++
		}
	}

	return plan, skipped
}
