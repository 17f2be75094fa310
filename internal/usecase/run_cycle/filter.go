package run_cycle

import (
	"github.com/m04kA/CDC-BookingBot/internal/domain"
)

// filterEligibleSlots отбирает слоты, допустимые к бронированию по политике.
// Порядок входного списка сохраняется. Каждый исключенный слот возвращается
// во втором списке с причиной для отчета цикла.
//
// Слот допустим, только если выполняются ВСЕ условия:
//   - дата слота не входит в skip-даты политики;
//   - день недели слота не входит в skip-дни политики;
//   - интервал слота [start, end) не пересекает ни одно запрещенное окно
//     для его даты и дня недели;
//   - слот не совпадает точно (дата, начало, конец, тип) ни с одной уже
//     забронированной сессией.
//
// Слоты с некорректными временными данными исключаются fail-closed:
// лучше пропустить слот, чем забронировать запрещенный.
func filterEligibleSlots(
	slots []domain.SessionSlot,
	policy domain.BookingPolicy,
	booked []domain.BookedSession,
) ([]domain.SessionSlot, []SkippedSlot) {
	eligible := make([]domain.SessionSlot, 0, len(slots))
	var skipped []SkippedSlot

	for _, slot := range slots {
		if reason, ok := classifySlot(slot, policy, booked); !ok {
			skipped = append(skipped, SkippedSlot{Slot: slot, Reason: reason})
			continue
		}
		eligible = append(eligible, slot)
	}

	return eligible, skipped
}

// classifySlot проверяет один слот против политики.
// Возвращает (причина, false), если слот должен быть исключен.
func classifySlot(
	slot domain.SessionSlot,
	policy domain.BookingPolicy,
	booked []domain.BookedSession,
) (SkipReason, bool) {
	if slot.Date.IsZero() || slot.StartTime.Validate() != nil || slot.EndTime.Validate() != nil {
		return ReasonMalformed, false
	}

	if policy.DateSkipped(slot.Date) {
		return ReasonDateSkipped, false
	}

	if policy.WeekdaySkipped(slot.Weekday()) {
		return ReasonWeekdaySkipped, false
	}

	for _, window := range policy.WindowsFor(slot.Date) {
		if window.Overlaps(slot.StartTime, slot.EndTime) {
			return ReasonAvoidWindow, false
		}
	}

	for _, b := range booked {
		if slot.Matches(b) {
			return ReasonAlreadyBooked, false
		}
	}

	return "", true
}
