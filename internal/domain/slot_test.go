package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

func mustTime(t *testing.T, s string) types.TimeString {
	t.Helper()
	ts, err := types.NewTimeStringFromString(s)
	require.NoError(t, err)
	return ts
}

func TestParseSessionType(t *testing.T) {
	got, err := ParseSessionType("practical")
	require.NoError(t, err)
	assert.Equal(t, SessionPractical, got)

	got, err = ParseSessionType("pt")
	require.NoError(t, err)
	assert.Equal(t, SessionPT, got)

	_, err = ParseSessionType("theory")
	assert.Error(t, err)
}

func TestSessionSlot_Matches(t *testing.T) {
	date := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.Local)
	slot := SessionSlot{
		Date:      date,
		StartTime: mustTime(t, "09:00"),
		EndTime:   mustTime(t, "11:00"),
		Type:      SessionPractical,
		RawID:     "cell-42",
	}

	booked := BookedSession{
		Date:      date,
		StartTime: mustTime(t, "09:00"),
		EndTime:   mustTime(t, "11:00"),
		Type:      SessionPractical,
	}
	assert.True(t, slot.Matches(booked))

	// Совпадение только по дате и началу не считается дубликатом
	booked.EndTime = mustTime(t, "10:00")
	assert.False(t, slot.Matches(booked))

	booked.EndTime = mustTime(t, "11:00")
	booked.Type = SessionPT
	assert.False(t, slot.Matches(booked))

	booked.Type = SessionPractical
	booked.Date = date.AddDate(0, 0, 1)
	assert.False(t, slot.Matches(booked))
}
