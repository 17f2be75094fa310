package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	getHistoryHandler "github.com/m04kA/CDC-BookingBot/internal/api/handlers/get_history"
	getStatusHandler "github.com/m04kA/CDC-BookingBot/internal/api/handlers/get_status"
	"github.com/m04kA/CDC-BookingBot/internal/config"
	"github.com/m04kA/CDC-BookingBot/internal/domain"
	journalRepo "github.com/m04kA/CDC-BookingBot/internal/infra/storage/journal"
	captchaClient "github.com/m04kA/CDC-BookingBot/internal/integrations/captcha"
	cdcClient "github.com/m04kA/CDC-BookingBot/internal/integrations/cdcclient"
	discordClient "github.com/m04kA/CDC-BookingBot/internal/integrations/discord"
	accountsService "github.com/m04kA/CDC-BookingBot/internal/service/accounts"
	runCycleUC "github.com/m04kA/CDC-BookingBot/internal/usecase/run_cycle"
	"github.com/m04kA/CDC-BookingBot/pkg/logger"
	"github.com/m04kA/CDC-BookingBot/pkg/metrics"
	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

// nopNotifier используется, когда Discord выключен в конфигурации
type nopNotifier struct{}

func (nopNotifier) SendCycleSummary(context.Context, string, *runCycleUC.CycleReport) error {
	return nil
}

func (nopNotifier) SendBookingAlert(context.Context, string, domain.SessionSlot) error {
	return nil
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting CDC-BookingBot...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных (журнал циклов опционален)
	var db *sql.DB
	if cfg.Database.Enabled {
		db, err = sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

		if err := db.Ping(); err != nil {
			log.Fatal("Failed to ping database: %v", err)
		}
		log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	} else {
		log.Info("Cycle journal disabled (no database configured)")
	}

	// Инициализируем интеграционных клиентов
	solver := captchaClient.NewClient(
		captchaClient.DefaultBaseURL,
		cfg.Captcha.APIKey,
		time.Duration(cfg.Captcha.Timeout)*time.Second,
		time.Duration(cfg.Captcha.PollIntervalSecs)*time.Second,
		log,
	)

	siteClient := cdcClient.NewClient(
		cfg.CDC.BaseURL,
		time.Duration(cfg.CDC.Timeout)*time.Second,
		cfg.CDC.RequestsPerMinute,
		solver,
		log,
	)
	log.Info("Site client initialized (base=%s, timeout=%ds, rate=%d rpm)",
		cfg.CDC.BaseURL, cfg.CDC.Timeout, cfg.CDC.RequestsPerMinute)

	var notifier runCycleUC.Notifier = nopNotifier{}
	var discord *discordClient.Client
	if cfg.Discord.Enabled {
		discord = discordClient.NewClient(
			cfg.Discord.WebhookURL,
			cfg.Discord.ReservationsWebhookURL,
			time.Duration(cfg.Discord.Timeout)*time.Second,
			log,
		)
		notifier = discord
		log.Info("Discord notifications enabled")
	} else {
		log.Info("Discord notifications disabled")
	}

	// Преобразуем конфигурацию в доменные модели
	domainAccounts, err := cfg.DomainAccounts()
	if err != nil {
		log.Fatal("Failed to build accounts: %v", err)
	}
	globalPolicy, err := cfg.DomainGlobalPolicy()
	if err != nil {
		log.Fatal("Failed to build global policy: %v", err)
	}
	slotsPerType, err := cfg.DomainSlotsPerType()
	if err != nil {
		log.Fatal("Failed to build slots-per-type limits: %v", err)
	}

	// Инициализируем use case цикла мониторинга
	cycleUseCase := runCycleUC.NewUseCase(siteClient, notifier, log)

	// Инициализируем журнал циклов (если БД подключена)
	var journal accountsService.Journal
	var journalRepository *journalRepo.Repository
	if db != nil {
		journalRepository = journalRepo.NewRepository(db)
		journal = journalRepository

		if cfg.Database.RetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -cfg.Database.RetentionDays)
			if pruned, err := journalRepository.PruneBefore(context.Background(), cutoff); err != nil {
				log.Warn("Failed to prune cycle journal: %v", err)
			} else if pruned > 0 {
				log.Info("Pruned %d journal record(s) older than %d days", pruned, cfg.Database.RetentionDays)
			}
		}
	}

	var svcMetrics accountsService.Metrics
	if metricsCollector != nil {
		svcMetrics = metricsCollector
	}

	// Инициализируем менеджер аккаунтов
	svc := accountsService.NewService(
		accountsService.Config{
			Accounts:              domainAccounts,
			GlobalPolicy:          globalPolicy,
			SlotsPerType:          slotsPerType,
			MaxConcurrentAccounts: cfg.Program.MaxConcurrentAccounts,
			Schedule: accountsService.Schedule{
				MinInterval:   time.Duration(cfg.Program.PollIntervalMinSecs) * time.Second,
				MaxInterval:   time.Duration(cfg.Program.PollIntervalMaxSecs) * time.Second,
				BlackoutStart: types.TimeString(cfg.Program.BlackoutStart),
				BlackoutEnd:   types.TimeString(cfg.Program.BlackoutEnd),
			},
			Stagger: time.Duration(cfg.Program.StaggerSeconds) * time.Second,
		},
		cycleUseCase,
		journal,
		svcMetrics,
		log,
	)

	// Инициализируем handlers
	getStatus := getStatusHandler.NewHandler(svc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Metrics endpoint (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// Статусы воркеров аккаунтов
	api.HandleFunc("/status", getStatus.Handle).Methods(http.MethodGet)

	// История циклов (только при подключенном журнале)
	if journalRepository != nil {
		getHistory := getHistoryHandler.NewHandler(journalRepository, log)
		api.HandleFunc("/history", getHistory.Handle).Methods(http.MethodGet)
		api.HandleFunc("/history/{cycleId}/events", getHistory.HandleEvents).Methods(http.MethodGet)
	}

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("Starting ops server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Запускаем воркеров аккаунтов
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	svc.Start(workersCtx)

	if discord != nil {
		enabled := 0
		for _, account := range domainAccounts {
			if account.Enabled {
				enabled++
			}
		}
		if err := discord.SendStartupNotice(context.Background(), enabled); err != nil {
			log.Warn("Failed to send startup notice: %v", err)
		}
	}

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	// Воркеры останавливаются только между циклами: начатый цикл
	// доводится до конца
	stopWorkers()
	svc.Wait()
	log.Info("All account workers stopped")

	if discord != nil {
		if err := discord.SendShutdownNotice(context.Background()); err != nil {
			log.Warn("Failed to send shutdown notice: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Service stopped gracefully")
}
