package cdcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

// Client клиент сайта автошколы. Держит по отдельной HTTP-сессии (cookie jar)
// на каждый аккаунт и переживает протухание сессии повторным логином.
// Все запросы проходят через общий rate limiter, чтобы суммарная нагрузка
// от всех воркеров не превышала потолок сайта.
type Client struct {
	baseURL string
	timeout time.Duration
	solver  CaptchaSolver
	limiter *rate.Limiter
	log     Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session состояние одной залогиненной учетной записи
type session struct {
	httpClient *http.Client
	loggedIn   bool
}

// NewClient создает новый экземпляр клиента сайта.
// requestsPerMinute = 0 отключает ограничение частоты запросов.
func NewClient(baseURL string, timeout time.Duration, requestsPerMinute int, solver CaptchaSolver, log Logger) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}

	return &Client{
		baseURL:  baseURL,
		timeout:  timeout,
		solver:   solver,
		limiter:  limiter,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// FetchAvailableSlots получает доступные слоты одного типа в порядке,
// в котором их отдает сайт. Слоты с нечитаемыми датой или временем
// возвращаются с нулевыми значениями, дальше по конвейеру они будут
// отсеяны как некорректные, а не забронированы вслепую.
func (c *Client) FetchAvailableSlots(ctx context.Context, account domain.Account, sessionType domain.SessionType) ([]domain.SessionSlot, error) {
	path := fmt.Sprintf("/booking/slots?type=%s", url.QueryEscape(string(sessionType)))

	var payload slotsResponse
	if err := c.getJSON(ctx, account, path, &payload); err != nil {
		return nil, err
	}

	slots := make([]domain.SessionSlot, 0, len(payload.Slots))
	for _, raw := range payload.Slots {
		slot, err := c.parseSlot(raw, sessionType)
		if err != nil {
			c.log.Warn("Account %s: unreadable %s slot %q: %v", account.Name, sessionType, raw.ID, err)
		}
		slots = append(slots, slot)
	}

	c.log.Info("Account %s: fetched %d %s slots", account.Name, len(slots), sessionType)
	return slots, nil
}

// FetchBookedSessions получает уже забронированные сессии аккаунта
func (c *Client) FetchBookedSessions(ctx context.Context, account domain.Account) ([]domain.BookedSession, error) {
	var payload bookedResponse
	if err := c.getJSON(ctx, account, "/booking/sessions", &payload); err != nil {
		return nil, err
	}

	booked := make([]domain.BookedSession, 0, len(payload.Sessions))
	for _, raw := range payload.Sessions {
		date, err := time.Parse(siteDateFormat, raw.Date)
		if err != nil {
			c.log.Warn("Account %s: unreadable booked session date %q: %v", account.Name, raw.Date, err)
			continue
		}
		booked = append(booked, domain.BookedSession{
			Date:      date,
			StartTime: types.TimeString(raw.StartTime),
			EndTime:   types.TimeString(raw.EndTime),
			Type:      domain.SessionType(raw.Type),
		})
	}

	return booked, nil
}

// Reserve выполняет бронирование слота на сайте
func (c *Client) Reserve(ctx context.Context, account domain.Account, slot domain.SessionSlot) (domain.ReservationOutcome, error) {
	path := fmt.Sprintf("/booking/slots/%s/reserve", url.PathEscape(slot.RawID))

	resp, err := c.do(ctx, account, http.MethodPost, path, nil)
	if err != nil {
		return domain.OutcomeFailed, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// Продолжаем обработку
	case http.StatusConflict:
		return domain.OutcomeFailed, ErrSlotTaken
	case http.StatusForbidden:
		return domain.OutcomeFailed, ErrAntiBot
	default:
		body, _ := io.ReadAll(resp.Body)
		return domain.OutcomeFailed, fmt.Errorf("%w: unexpected status code %d: %s",
			ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var result reserveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Бронирование могло пройти на стороне сайта: не считаем его
		// проваленным, требуем ручной проверки
		return domain.OutcomeNeedsConfirmation, nil
	}

	switch result.Status {
	case "reserved":
		return domain.OutcomeReserved, nil
	case "pending_confirmation":
		return domain.OutcomeNeedsConfirmation, nil
	default:
		return domain.OutcomeNeedsConfirmation, nil
	}
}

// parseSlot переводит сырой слот сайта в доменную модель
func (c *Client) parseSlot(raw slotPayload, sessionType domain.SessionType) (domain.SessionSlot, error) {
	slot := domain.SessionSlot{
		Type:      sessionType,
		RawID:     raw.ID,
		StartTime: types.TimeString(raw.StartTime),
		EndTime:   types.TimeString(raw.EndTime),
	}

	date, err := time.Parse(siteDateFormat, raw.Date)
	if err != nil {
		return slot, fmt.Errorf("invalid date %q: %v", raw.Date, err)
	}
	slot.Date = date

	if err := slot.StartTime.Validate(); err != nil {
		return slot, fmt.Errorf("invalid start time %q: %v", raw.StartTime, err)
	}
	if err := slot.EndTime.Validate(); err != nil {
		return slot, fmt.Errorf("invalid end time %q: %v", raw.EndTime, err)
	}

	return slot, nil
}

// getJSON выполняет GET-запрос от имени аккаунта и декодирует JSON-ответ
func (c *Client) getJSON(ctx context.Context, account domain.Account, path string, out interface{}) error {
	resp, err := c.do(ctx, account, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusForbidden:
		return ErrAntiBot
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// do выполняет запрос в рамках сессии аккаунта.
// При 401 сессия считается протухшей: выполняется повторный логин
// и один повтор запроса.
func (c *Client) do(ctx context.Context, account domain.Account, method, path string, body []byte) (*http.Response, error) {
	sess, err := c.sessionFor(ctx, account)
	if err != nil {
		return nil, err
	}

	resp, err := c.request(ctx, sess, method, path, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.log.Info("Account %s: session expired, re-authenticating", account.Name)

		if err := c.login(ctx, sess, account); err != nil {
			return nil, err
		}
		return c.request(ctx, sess, method, path, body)
	}

	return resp, nil
}

// request один HTTP-запрос с учетом rate limiter
func (c *Client) request(ctx context.Context, sess *session, method, path string, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrInternal, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sess.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	return resp, nil
}

// sessionFor возвращает залогиненную сессию аккаунта, создавая её при
// первом обращении
func (c *Client) sessionFor(ctx context.Context, account domain.Account) (*session, error) {
	c.mu.Lock()
	sess, ok := c.sessions[account.Name]
	if !ok {
		jar, err := cookiejar.New(nil)
		if err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: cookie jar: %v", ErrInternal, err)
		}
		sess = &session{
			httpClient: &http.Client{
				Timeout: c.timeout,
				Jar:     jar,
			},
		}
		c.sessions[account.Name] = sess
	}
	c.mu.Unlock()

	if !sess.loggedIn {
		if err := c.login(ctx, sess, account); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// login выполняет полный цикл аутентификации: получение параметров капчи,
// её решение внешним сервисом и отправка учетных данных
func (c *Client) login(ctx context.Context, sess *session, account domain.Account) error {
	sess.loggedIn = false

	resp, err := c.request(ctx, sess, http.MethodGet, "/auth/challenge", nil)
	if err != nil {
		return err
	}

	var challenge loginChallenge
	err = json.NewDecoder(resp.Body).Decode(&challenge)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("%w: failed to decode login challenge: %v", ErrInvalidResponse, err)
	}

	token := ""
	if challenge.SiteKey != "" {
		token, err = c.solver.Solve(ctx, challenge.SiteKey, challenge.PageURL)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCaptcha, err)
		}
	}

	body, err := json.Marshal(loginRequest{
		Username:     account.Username,
		Password:     account.Password,
		CaptchaToken: token,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal login request: %v", ErrInternal, err)
	}

	loginResp, err := c.request(ctx, sess, http.MethodPost, "/auth/login", body)
	if err != nil {
		return err
	}
	defer loginResp.Body.Close()

	switch loginResp.StatusCode {
	case http.StatusOK:
		// Сессионные cookie уже в jar
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusForbidden:
		return ErrAntiBot
	default:
		respBody, _ := io.ReadAll(loginResp.Body)
		return fmt.Errorf("%w: unexpected status code %d: %s",
			ErrInvalidResponse, loginResp.StatusCode, string(respBody))
	}

	sess.loggedIn = true
	c.log.Info("Account %s: authenticated", account.Name)
	return nil
}
