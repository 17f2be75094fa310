package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
	runCycle "github.com/m04kA/CDC-BookingBot/internal/usecase/run_cycle"
	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// webhookStub принимает сообщения webhook и запоминает их
type webhookStub struct {
	t        *testing.T
	messages []webhookMessage
	rateHits int32 // сколько первых запросов ответить 429
}

func (s *webhookStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&s.rateHits, -1) >= 0 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var msg webhookMessage
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&msg))
		s.messages = append(s.messages, msg)
		w.WriteHeader(http.StatusNoContent)
	}
}

func testSlot() domain.SessionSlot {
	return domain.SessionSlot{
		Date:      time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC),
		StartTime: types.TimeString("09:00"),
		EndTime:   types.TimeString("10:30"),
		Type:      domain.SessionPractical,
		RawID:     "s1",
	}
}

func TestClient_SendCycleSummary(t *testing.T) {
	stub := &webhookStub{t: t}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second, noopLogger{})

	report := &runCycle.CycleReport{
		AccountName:     "alice",
		FinishedAt:      time.Now(),
		Phase:           runCycle.PhaseIdle,
		AvailableByType: map[domain.SessionType]int{domain.SessionPractical: 5},
		EligibleCount:   3,
		Reserved:        []domain.SessionSlot{testSlot()},
		Skipped: []runCycle.SkippedSlot{
			{Slot: testSlot(), Reason: runCycle.ReasonQuotaExceeded},
		},
	}

	require.NoError(t, client.SendCycleSummary(context.Background(), "alice", report))
	require.Len(t, stub.messages, 1)
	require.Len(t, stub.messages[0].Embeds, 1)

	e := stub.messages[0].Embeds[0]
	assert.Equal(t, "Cycle summary: alice", e.Title)
	assert.Equal(t, colorBlue, e.Color)

	// Пропуски не теряются: причина видна в сводке
	var skippedField *embedField
	for i := range e.Fields {
		if e.Fields[i].Name == "Skipped" {
			skippedField = &e.Fields[i]
		}
	}
	require.NotNil(t, skippedField)
	assert.Contains(t, skippedField.Value, "quota exceeded")
}

func TestClient_SendCycleSummary_FailedCycle(t *testing.T) {
	stub := &webhookStub{t: t}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second, noopLogger{})

	report := &runCycle.CycleReport{
		AccountName: "alice",
		FinishedAt:  time.Now(),
		Phase:       runCycle.PhaseFailed,
		FailedPhase: runCycle.PhaseFetching,
		Error:       "listing unavailable",
	}

	require.NoError(t, client.SendCycleSummary(context.Background(), "alice", report))
	require.Len(t, stub.messages, 1)

	e := stub.messages[0].Embeds[0]
	assert.Equal(t, colorRed, e.Color)
	assert.Contains(t, e.Description, "fetching")
	assert.Contains(t, e.Description, "listing unavailable")
}

func TestClient_SendBookingAlert_UsesReservationsChannel(t *testing.T) {
	mainStub := &webhookStub{t: t}
	mainSrv := httptest.NewServer(mainStub.handler())
	defer mainSrv.Close()

	reservationsStub := &webhookStub{t: t}
	reservationsSrv := httptest.NewServer(reservationsStub.handler())
	defer reservationsSrv.Close()

	client := NewClient(mainSrv.URL, reservationsSrv.URL, 5*time.Second, noopLogger{})

	require.NoError(t, client.SendBookingAlert(context.Background(), "alice", testSlot()))

	assert.Empty(t, mainStub.messages)
	require.Len(t, reservationsStub.messages, 1)

	e := reservationsStub.messages[0].Embeds[0]
	assert.Equal(t, colorGreen, e.Color)
	assert.Contains(t, e.Description, "2026-09-08")
	assert.Contains(t, e.Description, "09:00")
}

func TestClient_Send_RetriesOnRateLimit(t *testing.T) {
	stub := &webhookStub{t: t, rateHits: 2}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second, noopLogger{})

	require.NoError(t, client.SendStartupNotice(context.Background(), 3))
	require.Len(t, stub.messages, 1)
	assert.Contains(t, stub.messages[0].Content, "3 account(s)")
}

func TestClient_Send_GivesUpAfterRetries(t *testing.T) {
	stub := &webhookStub{t: t, rateHits: 100}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second, noopLogger{})

	err := client.SendShutdownNotice(context.Background())
	assert.ErrorIs(t, err, ErrDelivery)
}

func TestClient_Send_DeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second, noopLogger{})

	err := client.SendBookingAlert(context.Background(), "alice", testSlot())
	assert.ErrorIs(t, err, ErrDelivery)
}
