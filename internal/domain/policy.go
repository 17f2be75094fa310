package domain

import (
	"time"

	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

// TimeWindow represents a half-open time interval [Start, End) within one day.
// Used for avoid-time restrictions: a slot overlapping the window is excluded.
type TimeWindow struct {
	Start types.TimeString
	End   types.TimeString
}

// IsValid returns true if the window is non-empty (Start strictly before End)
func (w TimeWindow) IsValid() bool {
	return w.Start.IsBefore(w.End)
}

// Overlaps reports whether the half-open interval [start, end) overlaps the window.
//
// Два полуоткрытых интервала [a,b) и [c,d) пересекаются только если a < d И c < b.
// Граничащие интервалы (b == c или d == a) пересечением НЕ считаются.
// Пустые и инвертированные интервалы считаются непересекающимися.
func (w TimeWindow) Overlaps(start, end types.TimeString) bool {
	if !w.IsValid() || !start.IsBefore(end) {
		return false
	}
	return start.IsBefore(w.End) && w.Start.IsBefore(end)
}

// BookingPolicy booking restrictions applied to one account for one cycle.
// The zero value carries no restrictions at all.
type BookingPolicy struct {
	// SkipDates даты (YYYY-MM-DD), в которые бронирование запрещено полностью
	SkipDates map[string]struct{}

	// SkipWeekdays дни недели, в которые бронирование запрещено полностью
	SkipWeekdays map[time.Weekday]struct{}

	// DateWindows запрещенные временные окна для конкретных дат (YYYY-MM-DD)
	DateWindows map[string][]TimeWindow

	// WeekdayWindows запрещенные временные окна для дней недели
	WeekdayWindows map[time.Weekday][]TimeWindow

	// MaxLessonsPerDay максимум уроков на одну дату; nil = без ограничения
	MaxLessonsPerDay *int
}

// DateSkipped returns true if the date is fully excluded by the policy
func (p BookingPolicy) DateSkipped(date time.Time) bool {
	if len(p.SkipDates) == 0 {
		return false
	}
	_, ok := p.SkipDates[date.Format(DateFormat)]
	return ok
}

// WeekdaySkipped returns true if the weekday is fully excluded by the policy
func (p BookingPolicy) WeekdaySkipped(day time.Weekday) bool {
	if len(p.SkipWeekdays) == 0 {
		return false
	}
	_, ok := p.SkipWeekdays[day]
	return ok
}

// WindowsFor returns all avoid-time windows applying to the given date:
// date-specific windows plus weekday windows.
func (p BookingPolicy) WindowsFor(date time.Time) []TimeWindow {
	var windows []TimeWindow
	windows = append(windows, p.DateWindows[date.Format(DateFormat)]...)
	windows = append(windows, p.WeekdayWindows[date.Weekday()]...)
	return windows
}

// Unlimited returns true if the policy places no cap on lessons per day
func (p BookingPolicy) Unlimited() bool {
	return p.MaxLessonsPerDay == nil
}

// ResolvePolicy merges the global and the account-level policy into the
// effective policy for one cycle.
//
// Семантика: полное переопределение, НЕ слияние по полям. Если у аккаунта
// задана собственная политика, она возвращается как есть (незаполненные поля
// означают «без ограничения», а не «взять из глобальной»). Иначе действует
// глобальная политика. Ровно один источник на аккаунт на цикл.
func ResolvePolicy(global BookingPolicy, account *BookingPolicy) BookingPolicy {
	if account != nil {
		return *account
	}
	return global
}
