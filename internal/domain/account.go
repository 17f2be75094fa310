package domain

// Account учетная запись на сайте автошколы, отслеживаемая ботом
type Account struct {
	// Name человекочитаемое имя аккаунта (для логов, уведомлений и метрик)
	Name string

	Username string
	Password string

	// Enabled выключенные аккаунты не получают воркера
	Enabled bool

	// MonitoredTypes типы сессий, отслеживаемые для этого аккаунта
	MonitoredTypes []SessionType

	// Policy собственная политика ограничений аккаунта.
	// nil = действует глобальная политика (см. ResolvePolicy).
	Policy *BookingPolicy
}
