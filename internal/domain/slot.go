package domain

import (
	"fmt"
	"time"

	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

// SessionType represents the category of a bookable session
type SessionType string

const (
	// SessionPractical обычный практический урок вождения
	SessionPractical SessionType = "practical"
	// SessionPT практический экзамен (practical test)
	SessionPT SessionType = "pt"
)

// AllSessionTypes список всех поддерживаемых типов сессий
var AllSessionTypes = []SessionType{SessionPractical, SessionPT}

// ParseSessionType разбирает тип сессии из строки конфигурации
func ParseSessionType(s string) (SessionType, error) {
	switch SessionType(s) {
	case SessionPractical:
		return SessionPractical, nil
	case SessionPT:
		return SessionPT, nil
	default:
		return "", fmt.Errorf("unknown session type %q", s)
	}
}

// SessionSlot represents one bookable time slot as reported by the booking site.
// Immutable once fetched; a fresh list is produced every polling cycle.
type SessionSlot struct {
	Date      time.Time // calendar date, midnight in local time
	StartTime types.TimeString
	EndTime   types.TimeString
	Type      SessionType

	// RawID opaque handle used to perform the reservation action on the site
	RawID string
}

// DateKey returns the slot date formatted as YYYY-MM-DD
func (s SessionSlot) DateKey() string {
	return s.Date.Format(DateFormat)
}

// Weekday returns the weekday of the slot date
func (s SessionSlot) Weekday() time.Weekday {
	return s.Date.Weekday()
}

// Matches returns true if the slot is identical to a booked session
// in (date, start, end, type). Used for duplicate suppression.
func (s SessionSlot) Matches(b BookedSession) bool {
	return s.DateKey() == b.DateKey() &&
		s.StartTime == b.StartTime &&
		s.EndTime == b.EndTime &&
		s.Type == b.Type
}

// BookedSession a session the account has already reserved on the site.
// Read-only within a cycle; seeds the daily quota tracker.
type BookedSession struct {
	Date      time.Time
	StartTime types.TimeString
	EndTime   types.TimeString
	Type      SessionType
}

// DateKey returns the session date formatted as YYYY-MM-DD
func (b BookedSession) DateKey() string {
	return b.Date.Format(DateFormat)
}

// ReservationOutcome represents the result of one reservation attempt
type ReservationOutcome string

const (
	// OutcomeReserved слот успешно зарезервирован
	OutcomeReserved ReservationOutcome = "reserved"
	// OutcomeFailed попытка бронирования окончательно не удалась
	OutcomeFailed ReservationOutcome = "failed"
	// OutcomeNeedsConfirmation слот удержан сайтом, требуется ручное подтверждение
	OutcomeNeedsConfirmation ReservationOutcome = "needs_confirmation"
)
