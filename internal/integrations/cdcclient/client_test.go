package cdcclient

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
)

type fakeSolver struct {
	token string
	err   error
	calls int32
}

func (s *fakeSolver) Solve(context.Context, string, string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.token, s.err
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// siteStub минимальная имитация сайта автошколы: логин по cookie,
// списки слотов и бронирование
type siteStub struct {
	t *testing.T

	slots        []slotPayload
	booked       []bookedPayload
	reserveCode  int
	reserveBody  reserveResponse
	lastLogin    loginRequest
	loginCount   int32
	rejectCookie bool
}

func (s *siteStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/challenge", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(loginChallenge{SiteKey: "site-key", PageURL: "https://site/login"})
	})

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.loginCount, 1)
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&s.lastLogin))
		if s.lastLogin.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "session-1", Path: "/"})
	})

	authed := func(w http.ResponseWriter, r *http.Request) bool {
		if _, err := r.Cookie("sid"); err != nil || s.rejectCookie {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}

	mux.HandleFunc("/booking/slots", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode(slotsResponse{Slots: s.slots})
	})

	mux.HandleFunc("/booking/sessions", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode(bookedResponse{Sessions: s.booked})
	})

	mux.HandleFunc("/booking/slots/", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		w.WriteHeader(s.reserveCode)
		_ = json.NewEncoder(w).Encode(s.reserveBody)
	})

	return mux
}

func testAccount() domain.Account {
	return domain.Account{
		Name:     "alice",
		Username: "alice@example.com",
		Password: "secret",
		Enabled:  true,
	}
}

func newTestClient(t *testing.T, stub *siteStub, solver *fakeSolver) *Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, 0, solver, noopLogger{})
}

func TestClient_FetchAvailableSlots(t *testing.T) {
	stub := &siteStub{
		t: t,
		slots: []slotPayload{
			{ID: "s1", Date: "08/Sep/2026", StartTime: "09:00", EndTime: "10:30"},
			{ID: "s2", Date: "09/Sep/2026", StartTime: "14:00", EndTime: "15:30"},
		},
	}
	solver := &fakeSolver{token: "captcha-token"}
	client := newTestClient(t, stub, solver)

	slots, err := client.FetchAvailableSlots(context.Background(), testAccount(), domain.SessionPractical)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, "s1", slots[0].RawID)
	assert.Equal(t, time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC), slots[0].Date)
	assert.Equal(t, "09:00", slots[0].StartTime.String())
	assert.Equal(t, domain.SessionPractical, slots[0].Type)

	// Логин прошел один раз и с решенной капчей
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.loginCount))
	assert.Equal(t, "captcha-token", stub.lastLogin.CaptchaToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&solver.calls))
}

func TestClient_FetchAvailableSlots_KeepsUnreadableSlots(t *testing.T) {
	stub := &siteStub{
		t: t,
		slots: []slotPayload{
			{ID: "bad", Date: "not-a-date", StartTime: "09:00", EndTime: "10:30"},
			{ID: "good", Date: "08/Sep/2026", StartTime: "11:00", EndTime: "12:30"},
		},
	}
	client := newTestClient(t, stub, &fakeSolver{token: "x"})

	slots, err := client.FetchAvailableSlots(context.Background(), testAccount(), domain.SessionPractical)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	// Нечитаемый слот возвращается с нулевой датой: дальше он будет
	// исключен фильтром и попадет в отчет, а не потеряется молча
	assert.True(t, slots[0].Date.IsZero())
	assert.False(t, slots[1].Date.IsZero())
}

func TestClient_SessionReusedAcrossCalls(t *testing.T) {
	stub := &siteStub{t: t}
	client := newTestClient(t, stub, &fakeSolver{token: "x"})

	_, err := client.FetchBookedSessions(context.Background(), testAccount())
	require.NoError(t, err)
	_, err = client.FetchBookedSessions(context.Background(), testAccount())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.loginCount))
}

func TestClient_ReloginOnExpiredSession(t *testing.T) {
	stub := &siteStub{t: t}
	client := newTestClient(t, stub, &fakeSolver{token: "x"})

	_, err := client.FetchBookedSessions(context.Background(), testAccount())
	require.NoError(t, err)

	// Сайт начинает отвергать cookie, клиент обязан перелогиниться
	stub.rejectCookie = true
	_, err = client.FetchBookedSessions(context.Background(), testAccount())
	// Повторный запрос после релогина все равно получает 401 (заглушка
	// отвергает любые cookie), но сам релогин должен был произойти
	require.Error(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&stub.loginCount), int32(2))
}

func TestClient_AuthFailed(t *testing.T) {
	stub := &siteStub{t: t}
	client := newTestClient(t, stub, &fakeSolver{token: "x"})

	account := testAccount()
	account.Password = "wrong"

	_, err := client.FetchBookedSessions(context.Background(), account)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestClient_Reserve(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    reserveResponse
		want    domain.ReservationOutcome
		wantErr error
	}{
		{
			name: "reserved",
			code: http.StatusOK,
			body: reserveResponse{Status: "reserved"},
			want: domain.OutcomeReserved,
		},
		{
			name: "pending confirmation",
			code: http.StatusOK,
			body: reserveResponse{Status: "pending_confirmation"},
			want: domain.OutcomeNeedsConfirmation,
		},
		{
			name:    "slot taken",
			code:    http.StatusConflict,
			want:    domain.OutcomeFailed,
			wantErr: ErrSlotTaken,
		},
		{
			name:    "anti-bot block",
			code:    http.StatusForbidden,
			want:    domain.OutcomeFailed,
			wantErr: ErrAntiBot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &siteStub{t: t, reserveCode: tt.code, reserveBody: tt.body}
			client := newTestClient(t, stub, &fakeSolver{token: "x"})

			slot := domain.SessionSlot{RawID: "s1", Type: domain.SessionPractical}
			outcome, err := client.Reserve(context.Background(), testAccount(), slot)

			assert.Equal(t, tt.want, outcome)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_CaptchaFailureAbortsLogin(t *testing.T) {
	stub := &siteStub{t: t}
	client := newTestClient(t, stub, &fakeSolver{err: context.DeadlineExceeded})

	_, err := client.FetchBookedSessions(context.Background(), testAccount())
	assert.ErrorIs(t, err, ErrCaptcha)
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.loginCount))
}
