package run_cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

func mustTime(t *testing.T, s string) types.TimeString {
	t.Helper()
	ts, err := types.NewTimeStringFromString(s)
	require.NoError(t, err)
	return ts
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(domain.DateFormat, s, time.Local)
	require.NoError(t, err)
	return d
}

func slot(t *testing.T, day, start, end string, sessionType domain.SessionType) domain.SessionSlot {
	t.Helper()
	return domain.SessionSlot{
		Date:      date(t, day),
		StartTime: mustTime(t, start),
		EndTime:   mustTime(t, end),
		Type:      sessionType,
		RawID:     day + "/" + start,
	}
}

func TestFilterEligibleSlots_SkipDatesAndWeekdays(t *testing.T) {
	// 2026-09-07 понедельник, 2026-09-08 вторник
	policy := domain.BookingPolicy{
		SkipDates:    map[string]struct{}{"2026-09-10": {}},
		SkipWeekdays: map[time.Weekday]struct{}{time.Monday: {}},
	}

	slots := []domain.SessionSlot{
		slot(t, "2026-09-07", "09:00", "11:00", domain.SessionPractical), // Monday
		slot(t, "2026-09-08", "09:00", "11:00", domain.SessionPractical), // Tuesday
		slot(t, "2026-09-10", "09:00", "11:00", domain.SessionPractical), // skip date
	}

	eligible, skipped := filterEligibleSlots(slots, policy, nil)

	require.Len(t, eligible, 1)
	assert.Equal(t, "2026-09-08", eligible[0].DateKey())

	require.Len(t, skipped, 2)
	assert.Equal(t, ReasonWeekdaySkipped, skipped[0].Reason)
	assert.Equal(t, ReasonDateSkipped, skipped[1].Reason)
}

func TestFilterEligibleSlots_AvoidWindowHalfOpen(t *testing.T) {
	// Сценарий из требований: запрещенное окно пятницы 13:00-17:00.
	// Слот 14:00-15:00 пересекает окно; слот 17:00-18:00 лишь граничит
	// с ним и остается допустимым (полуоткрытые интервалы).
	policy := domain.BookingPolicy{
		WeekdayWindows: map[time.Weekday][]domain.TimeWindow{
			time.Friday: {{Start: mustTime(t, "13:00"), End: mustTime(t, "17:00")}},
		},
	}

	friday := "2026-09-11"
	slots := []domain.SessionSlot{
		slot(t, friday, "14:00", "15:00", domain.SessionPractical),
		slot(t, friday, "17:00", "18:00", domain.SessionPractical),
	}

	eligible, skipped := filterEligibleSlots(slots, policy, nil)

	require.Len(t, eligible, 1)
	assert.Equal(t, mustTime(t, "17:00"), eligible[0].StartTime)

	require.Len(t, skipped, 1)
	assert.Equal(t, ReasonAvoidWindow, skipped[0].Reason)
}

func TestFilterEligibleSlots_DateWindow(t *testing.T) {
	policy := domain.BookingPolicy{
		DateWindows: map[string][]domain.TimeWindow{
			"2026-09-08": {{Start: mustTime(t, "08:00"), End: mustTime(t, "12:00")}},
		},
	}

	slots := []domain.SessionSlot{
		slot(t, "2026-09-08", "09:00", "11:00", domain.SessionPractical),
		slot(t, "2026-09-09", "09:00", "11:00", domain.SessionPractical), // другая дата, окно не действует
	}

	eligible, skipped := filterEligibleSlots(slots, policy, nil)

	require.Len(t, eligible, 1)
	assert.Equal(t, "2026-09-09", eligible[0].DateKey())
	require.Len(t, skipped, 1)
	assert.Equal(t, ReasonAvoidWindow, skipped[0].Reason)
}

func TestFilterEligibleSlots_DuplicateSuppression(t *testing.T) {
	booked := []domain.BookedSession{
		{
			Date:      date(t, "2026-09-08"),
			StartTime: mustTime(t, "09:00"),
			EndTime:   mustTime(t, "11:00"),
			Type:      domain.SessionPractical,
		},
	}

	slots := []domain.SessionSlot{
		slot(t, "2026-09-08", "09:00", "11:00", domain.SessionPractical), // точный дубликат
		slot(t, "2026-09-08", "09:00", "11:00", domain.SessionPT),        // другой тип, не дубликат
	}

	eligible, skipped := filterEligibleSlots(slots, domain.BookingPolicy{}, booked)

	require.Len(t, eligible, 1)
	assert.Equal(t, domain.SessionPT, eligible[0].Type)
	require.Len(t, skipped, 1)
	assert.Equal(t, ReasonAlreadyBooked, skipped[0].Reason)
}

func TestFilterEligibleSlots_MalformedSlotFailClosed(t *testing.T) {
	bad := domain.SessionSlot{
		Date:      date(t, "2026-09-08"),
		StartTime: types.TimeString("25:99"),
		EndTime:   mustTime(t, "11:00"),
		Type:      domain.SessionPractical,
	}

	eligible, skipped := filterEligibleSlots([]domain.SessionSlot{bad}, domain.BookingPolicy{}, nil)

	assert.Empty(t, eligible)
	require.Len(t, skipped, 1)
	assert.Equal(t, ReasonMalformed, skipped[0].Reason)
}

func TestFilterEligibleSlots_Idempotent(t *testing.T) {
	policy := domain.BookingPolicy{
		SkipWeekdays: map[time.Weekday]struct{}{time.Monday: {}},
		WeekdayWindows: map[time.Weekday][]domain.TimeWindow{
			time.Friday: {{Start: mustTime(t, "13:00"), End: mustTime(t, "17:00")}},
		},
	}

	slots := []domain.SessionSlot{
		slot(t, "2026-09-07", "09:00", "11:00", domain.SessionPractical),
		slot(t, "2026-09-08", "09:00", "11:00", domain.SessionPractical),
		slot(t, "2026-09-11", "14:00", "15:00", domain.SessionPT),
		slot(t, "2026-09-11", "17:00", "18:00", domain.SessionPT),
	}

	once, _ := filterEligibleSlots(slots, policy, nil)
	twice, skipped := filterEligibleSlots(once, policy, nil)

	// Повторная фильтрация уже отфильтрованного списка ничего не меняет
	assert.Equal(t, once, twice)
	assert.Empty(t, skipped)
}

func TestFilterEligibleSlots_PreservesOrder(t *testing.T) {
	slots := []domain.SessionSlot{
		slot(t, "2026-09-08", "14:00", "16:00", domain.SessionPractical),
		slot(t, "2026-09-08", "09:00", "11:00", domain.SessionPractical),
		slot(t, "2026-09-09", "09:00", "11:00", domain.SessionPractical),
	}

	eligible, _ := filterEligibleSlots(slots, domain.BookingPolicy{}, nil)

	require.Len(t, eligible, 3)
	assert.Equal(t, slots, eligible)
}
