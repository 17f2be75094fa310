package cdcclient

import "context"

// CaptchaSolver интерфейс внешнего сервиса распознавания капчи
type CaptchaSolver interface {
	// Solve решает reCAPTCHA по ключу сайта и URL страницы, возвращает токен
	Solve(ctx context.Context, siteKey, pageURL string) (string, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
