package accounts

import (
	"time"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
	runCycle "github.com/m04kA/CDC-BookingBot/internal/usecase/run_cycle"
)

// Config параметры менеджера аккаунтов
type Config struct {
	// Accounts все сконфигурированные аккаунты; воркеры создаются
	// только для включенных
	Accounts []domain.Account

	// GlobalPolicy глобальная политика ограничений; аккаунт с собственной
	// политикой переопределяет её целиком
	GlobalPolicy domain.BookingPolicy

	// SlotsPerType максимум попыток бронирования на тип сессии за цикл
	SlotsPerType map[domain.SessionType]int

	// MaxConcurrentAccounts лимит одновременно работающих воркеров (0 = без лимита)
	MaxConcurrentAccounts int

	// Schedule расписание циклов (джиттер и окно тишины)
	Schedule Schedule

	// Stagger задержка между стартами воркеров, чтобы не бить по сайту залпом
	Stagger time.Duration
}

// AccountStatus состояние одного аккаунта для ops-эндпоинта
type AccountStatus struct {
	Name       string
	Enabled    bool
	NextRunAt  time.Time
	LastReport *runCycle.CycleReport
}
