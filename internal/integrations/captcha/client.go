package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL адрес API сервиса распознавания
const DefaultBaseURL = "https://2captcha.com"

const notReadyStatus = "CAPCHA_NOT_READY"

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент сервиса распознавания reCAPTCHA (протокол 2captcha:
// отправка задачи + опрос готовности решения)
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	httpClient   *http.Client
	log          Logger
}

// NewClient создает новый экземпляр клиента сервиса распознавания
func NewClient(baseURL, apiKey string, timeout, pollInterval time.Duration, log Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		pollInterval: pollInterval,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// apiResponse ответ API: status=1 означает успех, request несет
// идентификатор задачи либо токен решения либо код ошибки
type apiResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// Solve решает reCAPTCHA: отправляет задачу и опрашивает готовность
// решения до успеха или отмены контекста
func (c *Client) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	taskID, err := c.submit(ctx, siteKey, pageURL)
	if err != nil {
		return "", err
	}

	c.log.Info("Captcha task %s submitted, polling every %s", taskID, c.pollInterval)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: solving cancelled: %v", ErrInternal, ctx.Err())
		case <-ticker.C:
		}

		token, ready, err := c.poll(ctx, taskID)
		if err != nil {
			return "", err
		}
		if ready {
			return token, nil
		}
	}
}

// submit отправляет задачу на решение, возвращает её идентификатор
func (c *Client) submit(ctx context.Context, siteKey, pageURL string) (string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("method", "userrecaptcha")
	params.Set("googlekey", siteKey)
	params.Set("pageurl", pageURL)
	params.Set("json", "1")

	resp, err := c.call(ctx, "/in.php", params)
	if err != nil {
		return "", err
	}

	if resp.Status != 1 {
		return "", fmt.Errorf("%w: %s", ErrRejected, resp.Request)
	}
	return resp.Request, nil
}

// poll проверяет готовность решения задачи
func (c *Client) poll(ctx context.Context, taskID string) (token string, ready bool, err error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("action", "get")
	params.Set("id", taskID)
	params.Set("json", "1")

	resp, err := c.call(ctx, "/res.php", params)
	if err != nil {
		return "", false, err
	}

	if resp.Status == 1 {
		return resp.Request, true, nil
	}
	if resp.Request == notReadyStatus {
		return "", false, nil
	}
	return "", false, fmt.Errorf("%w: %s", ErrUnsolvable, resp.Request)
}

// call выполняет один запрос к API и разбирает стандартный ответ
func (c *Client) call(ctx context.Context, path string, params url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrInvalidResponse, resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	return &parsed, nil
}
