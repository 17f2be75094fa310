package get_status

import (
	"github.com/m04kA/CDC-BookingBot/internal/service/accounts"
)

// AccountService интерфейс доступа к состоянию воркеров аккаунтов
type AccountService interface {
	Statuses() []accounts.AccountStatus
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
