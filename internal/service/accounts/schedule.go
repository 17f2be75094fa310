package accounts

import (
	"math/rand"
	"time"

	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

// Schedule расписание циклов мониторинга одного воркера:
// случайный интервал в диапазоне [MinInterval, MaxInterval] плюс ежедневное
// окно тишины, в течение которого циклы не запускаются.
type Schedule struct {
	MinInterval time.Duration
	MaxInterval time.Duration

	// BlackoutStart/BlackoutEnd границы окна тишины [start, end) по локальному времени
	BlackoutStart types.TimeString
	BlackoutEnd   types.TimeString

	// randFloat источник джиттера; переопределяется в тестах
	randFloat func() float64
}

// jitteredInterval возвращает случайный интервал в [MinInterval, MaxInterval]
func (s Schedule) jitteredInterval() time.Duration {
	if s.MaxInterval <= s.MinInterval {
		return s.MinInterval
	}
	randFloat := s.randFloat
	if randFloat == nil {
		randFloat = rand.Float64
	}
	spread := s.MaxInterval - s.MinInterval
	return s.MinInterval + time.Duration(randFloat()*float64(spread))
}

// hasBlackout возвращает true, если окно тишины сконфигурировано и непусто
func (s Schedule) hasBlackout() bool {
	return s.BlackoutStart != "" && s.BlackoutEnd != "" && s.BlackoutStart != s.BlackoutEnd
}

// InBlackout возвращает true, если момент t попадает в окно тишины.
// Окно полуоткрытое [start, end); окна через полночь поддерживаются.
func (s Schedule) InBlackout(t time.Time) bool {
	if !s.hasBlackout() {
		return false
	}

	clock := types.NewTimeString(t)
	if s.BlackoutStart.IsBefore(s.BlackoutEnd) {
		return !clock.IsBefore(s.BlackoutStart) && clock.IsBefore(s.BlackoutEnd)
	}
	// Окно через полночь, например 23:00-06:00
	return !clock.IsBefore(s.BlackoutStart) || clock.IsBefore(s.BlackoutEnd)
}

// blackoutEnd возвращает ближайший момент окончания окна тишины для t,
// находящегося внутри окна
func (s Schedule) blackoutEnd(t time.Time) time.Time {
	end, err := time.ParseInLocation("15:04", s.BlackoutEnd.String(), t.Location())
	if err != nil {
		return t
	}

	candidate := time.Date(t.Year(), t.Month(), t.Day(), end.Hour(), end.Minute(), 0, 0, t.Location())
	if candidate.After(t) {
		return candidate
	}
	return candidate.AddDate(0, 0, 1)
}

// NextRun возвращает момент следующего цикла: текущее время плюс случайный
// интервал, сдвинутый до конца окна тишины, если попал в него.
func (s Schedule) NextRun(now time.Time) time.Time {
	next := now.Add(s.jitteredInterval())
	if s.InBlackout(next) {
		return s.blackoutEnd(next)
	}
	return next
}
