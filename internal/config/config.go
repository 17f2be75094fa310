package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

// Config корневая конфигурация сервиса (config.toml)
type Config struct {
	Program      ProgramConfig   `toml:"program"`
	Logs         LogsConfig      `toml:"logs"`
	Metrics      MetricsConfig   `toml:"metrics"`
	Server       ServerConfig    `toml:"server"`
	Database     DatabaseConfig  `toml:"database"`
	CDC          CDCConfig       `toml:"cdc"`
	Captcha      CaptchaConfig   `toml:"captcha"`
	Discord      DiscordConfig   `toml:"discord"`
	GlobalPolicy *PolicyConfig   `toml:"global_policy"`
	Accounts     []AccountConfig `toml:"accounts"`
}

// ProgramConfig параметры мониторинга и планирования циклов
type ProgramConfig struct {
	// SlotsPerType максимум бронирований на тип сессии за один цикл
	SlotsPerType map[string]int `toml:"slots_per_type"`

	// MonitoredTypes типы сессий по умолчанию для аккаунтов,
	// не указавших собственный список (0 значений = все типы)
	MonitoredTypes []string `toml:"monitored_types"`

	// MaxConcurrentAccounts лимит одновременно активных воркеров (0 = без лимита)
	MaxConcurrentAccounts int `toml:"max_concurrent_accounts"`

	// StaggerSeconds пауза между стартами воркеров
	StaggerSeconds int `toml:"stagger_seconds"`

	// PollIntervalMinSecs / PollIntervalMaxSecs границы джиттера расписания
	PollIntervalMinSecs int `toml:"poll_interval_min_secs"`
	PollIntervalMaxSecs int `toml:"poll_interval_max_secs"`

	// BlackoutStart / BlackoutEnd окно тишины, в котором циклы не запускаются ("HH:MM")
	BlackoutStart string `toml:"blackout_start"`
	BlackoutEnd   string `toml:"blackout_end"`
}

// LogsConfig настройки логирования
type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// MetricsConfig настройки Prometheus метрик
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	Path        string `toml:"path"`
}

// ServerConfig настройки ops HTTP-сервера (метрики и статусы)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки PostgreSQL для журнала циклов.
// Журнал опционален: при Enabled=false сервис работает без БД.
type DatabaseConfig struct {
	Enabled         bool   `toml:"enabled"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`

	// RetentionDays срок хранения записей журнала; 0 = хранить бессрочно
	RetentionDays int `toml:"retention_days"`
}

// DSN возвращает строку подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// CDCConfig настройки клиента сайта автошколы
type CDCConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout int    `toml:"timeout"`

	// RequestsPerMinute потолок запросов к сайту; 0 = без ограничения
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// CaptchaConfig настройки сервиса распознавания капчи
type CaptchaConfig struct {
	APIKey string `toml:"api_key"`

	// Timeout общий бюджет на решение одной капчи, секунды
	Timeout int `toml:"timeout"`

	// PollIntervalSecs период опроса готовности решения
	PollIntervalSecs int `toml:"poll_interval_secs"`
}

// DiscordConfig настройки webhook-уведомлений
type DiscordConfig struct {
	Enabled bool `toml:"enabled"`

	// WebhookURL канал для сводок циклов и служебных сообщений
	WebhookURL string `toml:"webhook_url"`

	// ReservationsWebhookURL отдельный канал для алертов об успешных
	// бронированиях; пустая строка = использовать WebhookURL
	ReservationsWebhookURL string `toml:"reservations_webhook_url"`

	Timeout int `toml:"timeout"`
}

// PolicyConfig ограничения бронирования в конфигурационном виде.
// Дни недели нумеруются с понедельника: 0 = Monday ... 6 = Sunday.
type PolicyConfig struct {
	SkipDates        []string                `toml:"skip_dates"`
	SkipDaysOfWeek   []int                   `toml:"skip_days_of_week"`
	DateRestrictions []DateRestrictionConfig `toml:"date_time_restrictions"`
	DayRestrictions  []DayRestrictionConfig  `toml:"day_time_restrictions"`
	MaxLessonsPerDay *int                    `toml:"max_lessons_per_day"`
}

// DateRestrictionConfig запрещенные интервалы для конкретной даты
type DateRestrictionConfig struct {
	Date       string     `toml:"date"`
	AvoidTimes [][]string `toml:"avoid_times"`
}

// DayRestrictionConfig запрещенные интервалы для дня недели (0 = Monday)
type DayRestrictionConfig struct {
	Day        int        `toml:"day"`
	AvoidTimes [][]string `toml:"avoid_times"`
}

// AccountConfig один аккаунт автошколы
type AccountConfig struct {
	Name     string `toml:"name"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Enabled  bool   `toml:"enabled"`

	// MonitoredTypes типы сессий этого аккаунта; пусто = program.monitored_types
	MonitoredTypes []string `toml:"monitored_types"`

	// Policy собственная политика аккаунта; переопределяет глобальную целиком
	Policy *PolicyConfig `toml:"policy"`
}

// Load читает и валидирует конфигурацию из TOML-файла
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Program.SlotsPerType) == 0 {
		c.Program.SlotsPerType = make(map[string]int, len(domain.AllSessionTypes))
		for _, st := range domain.AllSessionTypes {
			c.Program.SlotsPerType[string(st)] = domain.DefaultSlotsPerType
		}
	}
	if len(c.Program.MonitoredTypes) == 0 {
		for _, st := range domain.AllSessionTypes {
			c.Program.MonitoredTypes = append(c.Program.MonitoredTypes, string(st))
		}
	}
	if c.Program.PollIntervalMinSecs == 0 {
		c.Program.PollIntervalMinSecs = domain.DefaultPollIntervalMinSecs
	}
	if c.Program.PollIntervalMaxSecs == 0 {
		c.Program.PollIntervalMaxSecs = domain.DefaultPollIntervalMaxSecs
	}
	if c.Program.StaggerSeconds == 0 {
		c.Program.StaggerSeconds = domain.DefaultStaggerSeconds
	}
	if c.Program.BlackoutStart == "" && c.Program.BlackoutEnd == "" {
		c.Program.BlackoutStart = domain.DefaultBlackoutStart
		c.Program.BlackoutEnd = domain.DefaultBlackoutEnd
	}
	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
}

func (c *Config) validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account must be configured")
	}

	seen := make(map[string]struct{}, len(c.Accounts))
	for i, account := range c.Accounts {
		if account.Name == "" {
			return fmt.Errorf("accounts[%d]: name is required", i)
		}
		if _, dup := seen[account.Name]; dup {
			return fmt.Errorf("accounts[%d]: duplicate account name %q", i, account.Name)
		}
		seen[account.Name] = struct{}{}

		if account.Username == "" || account.Password == "" {
			return fmt.Errorf("account %s: username and password are required", account.Name)
		}
		for _, raw := range account.MonitoredTypes {
			if _, err := domain.ParseSessionType(raw); err != nil {
				return fmt.Errorf("account %s: %w", account.Name, err)
			}
		}
		if account.Policy != nil {
			if _, err := account.Policy.ToDomain(); err != nil {
				return fmt.Errorf("account %s: invalid policy: %w", account.Name, err)
			}
		}
	}

	for raw := range c.Program.SlotsPerType {
		if _, err := domain.ParseSessionType(raw); err != nil {
			return fmt.Errorf("program.slots_per_type: %w", err)
		}
	}
	for _, raw := range c.Program.MonitoredTypes {
		if _, err := domain.ParseSessionType(raw); err != nil {
			return fmt.Errorf("program.monitored_types: %w", err)
		}
	}

	if c.Program.MaxConcurrentAccounts < 0 {
		return fmt.Errorf("program.max_concurrent_accounts must not be negative")
	}
	if c.Program.PollIntervalMinSecs < domain.MinPollIntervalSecs ||
		c.Program.PollIntervalMaxSecs > domain.MaxPollIntervalSecs ||
		c.Program.PollIntervalMaxSecs < c.Program.PollIntervalMinSecs {
		return fmt.Errorf("program poll interval bounds are invalid: min=%d max=%d (allowed %d-%d)",
			c.Program.PollIntervalMinSecs, c.Program.PollIntervalMaxSecs,
			domain.MinPollIntervalSecs, domain.MaxPollIntervalSecs)
	}
	if (c.Program.BlackoutStart == "") != (c.Program.BlackoutEnd == "") {
		return fmt.Errorf("program blackout window must set both bounds or neither")
	}
	if c.Program.BlackoutStart != "" {
		if err := types.TimeString(c.Program.BlackoutStart).Validate(); err != nil {
			return fmt.Errorf("program.blackout_start: %w", err)
		}
		if err := types.TimeString(c.Program.BlackoutEnd).Validate(); err != nil {
			return fmt.Errorf("program.blackout_end: %w", err)
		}
	}

	if c.GlobalPolicy != nil {
		if _, err := c.GlobalPolicy.ToDomain(); err != nil {
			return fmt.Errorf("global_policy: %w", err)
		}
	}

	if c.CDC.BaseURL == "" {
		return fmt.Errorf("cdc.base_url is required")
	}
	if c.Discord.Enabled && c.Discord.WebhookURL == "" {
		return fmt.Errorf("discord.webhook_url is required when discord is enabled")
	}
	if c.Database.Enabled && (c.Database.Host == "" || c.Database.DBName == "") {
		return fmt.Errorf("database host and dbname are required when database is enabled")
	}
	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("database.retention_days must not be negative")
	}

	return nil
}

// ToDomain преобразует конфигурационную политику в доменную.
// Отсутствующая секция (nil) означает политику без ограничений.
func (p *PolicyConfig) ToDomain() (domain.BookingPolicy, error) {
	var policy domain.BookingPolicy
	if p == nil {
		return policy, nil
	}

	if len(p.SkipDates) > 0 {
		policy.SkipDates = make(map[string]struct{}, len(p.SkipDates))
		for _, raw := range p.SkipDates {
			if _, err := time.Parse(domain.DateFormat, raw); err != nil {
				return policy, fmt.Errorf("skip_dates: invalid date %q (want %s)", raw, domain.DateFormat)
			}
			policy.SkipDates[raw] = struct{}{}
		}
	}

	if len(p.SkipDaysOfWeek) > 0 {
		policy.SkipWeekdays = make(map[time.Weekday]struct{}, len(p.SkipDaysOfWeek))
		for _, n := range p.SkipDaysOfWeek {
			wd, err := weekdayFromConfig(n)
			if err != nil {
				return policy, fmt.Errorf("skip_days_of_week: %w", err)
			}
			policy.SkipWeekdays[wd] = struct{}{}
		}
	}

	if len(p.DateRestrictions) > 0 {
		policy.DateWindows = make(map[string][]domain.TimeWindow, len(p.DateRestrictions))
		for _, r := range p.DateRestrictions {
			if _, err := time.Parse(domain.DateFormat, r.Date); err != nil {
				return policy, fmt.Errorf("date_time_restrictions: invalid date %q (want %s)", r.Date, domain.DateFormat)
			}
			windows, err := parseWindows(r.AvoidTimes)
			if err != nil {
				return policy, fmt.Errorf("date_time_restrictions[%s]: %w", r.Date, err)
			}
			policy.DateWindows[r.Date] = append(policy.DateWindows[r.Date], windows...)
		}
	}

	if len(p.DayRestrictions) > 0 {
		policy.WeekdayWindows = make(map[time.Weekday][]domain.TimeWindow, len(p.DayRestrictions))
		for _, r := range p.DayRestrictions {
			wd, err := weekdayFromConfig(r.Day)
			if err != nil {
				return policy, fmt.Errorf("day_time_restrictions: %w", err)
			}
			windows, err := parseWindows(r.AvoidTimes)
			if err != nil {
				return policy, fmt.Errorf("day_time_restrictions[%d]: %w", r.Day, err)
			}
			policy.WeekdayWindows[wd] = append(policy.WeekdayWindows[wd], windows...)
		}
	}

	policy.MaxLessonsPerDay = p.MaxLessonsPerDay
	if limit := policy.MaxLessonsPerDay; limit != nil &&
		(*limit < domain.MinLessonsPerDay || *limit > domain.MaxLessonsPerDay) {
		return policy, fmt.Errorf("max_lessons_per_day %d out of range [%d,%d] (omit for unlimited)",
			*limit, domain.MinLessonsPerDay, domain.MaxLessonsPerDay)
	}

	return policy, nil
}

// ToDomain преобразует конфигурацию аккаунта в доменную модель.
// defaultTypes используется, если аккаунт не указал собственный список типов.
func (a AccountConfig) ToDomain(defaultTypes []string) (domain.Account, error) {
	account := domain.Account{
		Name:     a.Name,
		Username: a.Username,
		Password: a.Password,
		Enabled:  a.Enabled,
	}

	rawTypes := a.MonitoredTypes
	if len(rawTypes) == 0 {
		rawTypes = defaultTypes
	}
	for _, raw := range rawTypes {
		st, err := domain.ParseSessionType(raw)
		if err != nil {
			return account, err
		}
		account.MonitoredTypes = append(account.MonitoredTypes, st)
	}

	if a.Policy != nil {
		policy, err := a.Policy.ToDomain()
		if err != nil {
			return account, err
		}
		account.Policy = &policy
	}

	return account, nil
}

// DomainAccounts возвращает все аккаунты в доменном виде
func (c *Config) DomainAccounts() ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(c.Accounts))
	for _, raw := range c.Accounts {
		account, err := raw.ToDomain(c.Program.MonitoredTypes)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", raw.Name, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// DomainGlobalPolicy возвращает глобальную политику в доменном виде
func (c *Config) DomainGlobalPolicy() (domain.BookingPolicy, error) {
	return c.GlobalPolicy.ToDomain()
}

// DomainSlotsPerType возвращает лимиты попыток по типам сессий
func (c *Config) DomainSlotsPerType() (map[domain.SessionType]int, error) {
	out := make(map[domain.SessionType]int, len(c.Program.SlotsPerType))
	for raw, limit := range c.Program.SlotsPerType {
		st, err := domain.ParseSessionType(raw)
		if err != nil {
			return nil, err
		}
		out[st] = limit
	}
	return out, nil
}

// weekdayFromConfig переводит номер дня из конфигурации (0 = Monday)
// в time.Weekday (0 = Sunday)
func weekdayFromConfig(n int) (time.Weekday, error) {
	if n < 0 || n > 6 {
		return 0, fmt.Errorf("day of week %d out of range [0,6]", n)
	}
	return time.Weekday((n + 1) % 7), nil
}

// parseWindows преобразует пары ["HH:MM","HH:MM"] в доменные окна
func parseWindows(raw [][]string) ([]domain.TimeWindow, error) {
	windows := make([]domain.TimeWindow, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("avoid_times entry must have exactly 2 elements, got %d", len(pair))
		}
		start, err := types.NewTimeStringFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("avoid_times start: %w", err)
		}
		end, err := types.NewTimeStringFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("avoid_times end: %w", err)
		}
		window := domain.TimeWindow{Start: start, End: end}
		if !window.IsValid() {
			return nil, fmt.Errorf("avoid_times window [%s, %s) is empty or inverted", start, end)
		}
		windows = append(windows, window)
	}
	return windows, nil
}
