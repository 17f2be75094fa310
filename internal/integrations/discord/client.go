package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
	runCycle "github.com/m04kA/CDC-BookingBot/internal/usecase/run_cycle"
)

// maxRetries количество повторов при rate limit со стороны Discord
const maxRetries = 3

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client отправляет уведомления через Discord webhooks. Сводки циклов и
// служебные сообщения идут в основной канал, алерты об успешных
// бронированиях в отдельный (если настроен).
type Client struct {
	webhookURL             string
	reservationsWebhookURL string
	httpClient             *http.Client
	log                    Logger
}

// NewClient создает новый экземпляр Discord-клиента.
// reservationsWebhookURL может быть пустым, тогда алерты идут в основной канал.
func NewClient(webhookURL, reservationsWebhookURL string, timeout time.Duration, log Logger) *Client {
	if reservationsWebhookURL == "" {
		reservationsWebhookURL = webhookURL
	}
	return &Client{
		webhookURL:             webhookURL,
		reservationsWebhookURL: reservationsWebhookURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// SendCycleSummary отправляет итоговую сводку цикла мониторинга
func (c *Client) SendCycleSummary(ctx context.Context, accountName string, report *runCycle.CycleReport) error {
	e := embed{
		Title:     fmt.Sprintf("Cycle summary: %s", accountName),
		Color:     colorBlue,
		Timestamp: report.FinishedAt.UTC().Format(time.RFC3339),
	}

	if !report.Succeeded() {
		e.Color = colorRed
		e.Description = fmt.Sprintf("Cycle failed during %s: %s", report.FailedPhase, report.Error)
	}

	total := 0
	for _, n := range report.AvailableByType {
		total += n
	}
	e.Fields = append(e.Fields,
		embedField{Name: "Available", Value: strconv.Itoa(total), Inline: true},
		embedField{Name: "Eligible", Value: strconv.Itoa(report.EligibleCount), Inline: true},
		embedField{Name: "Reserved", Value: strconv.Itoa(len(report.Reserved)), Inline: true},
	)

	if len(report.Reserved) > 0 {
		e.Fields = append(e.Fields, embedField{
			Name:  "Reserved slots",
			Value: formatSlots(report.Reserved),
		})
	}
	if len(report.NeedsConfirmation) > 0 {
		e.Color = colorOrange
		e.Fields = append(e.Fields, embedField{
			Name:  "Needs manual confirmation",
			Value: formatSlots(report.NeedsConfirmation),
		})
	}
	if len(report.FailedAttempts) > 0 {
		lines := make([]string, 0, len(report.FailedAttempts))
		for _, attempt := range report.FailedAttempts {
			lines = append(lines, fmt.Sprintf("%s — %s", formatSlot(attempt.Slot), attempt.Error))
		}
		e.Fields = append(e.Fields, embedField{
			Name:  "Failed attempts",
			Value: strings.Join(lines, "\n"),
		})
	}
	if len(report.Skipped) > 0 {
		e.Fields = append(e.Fields, embedField{
			Name:  "Skipped",
			Value: formatSkipped(report.Skipped),
		})
	}

	return c.send(ctx, c.webhookURL, webhookMessage{Embeds: []embed{e}})
}

// SendBookingAlert отправляет алерт об успешном бронировании слота
func (c *Client) SendBookingAlert(ctx context.Context, accountName string, slot domain.SessionSlot) error {
	e := embed{
		Title:       fmt.Sprintf("Slot reserved: %s", accountName),
		Description: formatSlot(slot),
		Color:       colorGreen,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	return c.send(ctx, c.reservationsWebhookURL, webhookMessage{Embeds: []embed{e}})
}

// SendStartupNotice сообщает о запуске сервиса
func (c *Client) SendStartupNotice(ctx context.Context, accountCount int) error {
	return c.send(ctx, c.webhookURL, webhookMessage{
		Content: fmt.Sprintf("Booking bot started, monitoring %d account(s)", accountCount),
	})
}

// SendShutdownNotice сообщает об остановке сервиса
func (c *Client) SendShutdownNotice(ctx context.Context) error {
	return c.send(ctx, c.webhookURL, webhookMessage{
		Content: "Booking bot stopped",
	})
}

// send доставляет сообщение в webhook с повторами при rate limit
func (c *Client) send(ctx context.Context, webhookURL string, msg webhookMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal message: %v", ErrInternal, err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			resp.Body.Close()
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			delay := retryAfter(resp)
			resp.Body.Close()
			c.log.Warn("Discord rate limit hit, retrying in %s (attempt %d/%d)", delay, attempt+1, maxRetries)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrDelivery, ctx.Err())
			}
		default:
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("%w: unexpected status code %d: %s", ErrDelivery, resp.StatusCode, string(respBody))
		}
	}

	return fmt.Errorf("%w: rate limited after %d attempts", ErrDelivery, maxRetries)
}

// retryAfter извлекает задержку повтора из заголовка Retry-After
func retryAfter(resp *http.Response) time.Duration {
	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return time.Second
}

func formatSlot(slot domain.SessionSlot) string {
	return fmt.Sprintf("%s %s %s–%s", slot.Type, slot.DateKey(), slot.StartTime, slot.EndTime)
}

func formatSlots(slots []domain.SessionSlot) string {
	lines := make([]string, 0, len(slots))
	for _, slot := range slots {
		lines = append(lines, formatSlot(slot))
	}
	return strings.Join(lines, "\n")
}

func formatSkipped(skipped []runCycle.SkippedSlot) string {
	lines := make([]string, 0, len(skipped))
	for _, s := range skipped {
		lines = append(lines, fmt.Sprintf("%s — %s", formatSlot(s.Slot), s.Reason))
	}
	return strings.Join(lines, "\n")
}
