package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор Prometheus-метрик сервиса
type Metrics struct {
	cyclesTotal         *prometheus.CounterVec
	cycleDuration       *prometheus.HistogramVec
	reservationAttempts *prometheus.CounterVec
	slotsSkipped        *prometheus.CounterVec
	fetchErrors         *prometheus.CounterVec
	workersActive       prometheus.Gauge
}

// New создает и регистрирует метрики в default-реестре Prometheus
func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "bookingbot_cycles_total",
			Help:        "Number of completed monitoring cycles by account and result.",
			ConstLabels: constLabels,
		}, []string{"account", "result"}),

		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "bookingbot_cycle_duration_seconds",
			Help:        "Duration of one monitoring cycle.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"account"}),

		reservationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "bookingbot_reservation_attempts_total",
			Help:        "Number of reservation attempts by account and outcome.",
			ConstLabels: constLabels,
		}, []string{"account", "outcome"}),

		slotsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "bookingbot_slots_skipped_total",
			Help:        "Number of slots skipped during filtering and planning by reason.",
			ConstLabels: constLabels,
		}, []string{"account", "reason"}),

		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "bookingbot_fetch_errors_total",
			Help:        "Number of failed session listing fetches by account.",
			ConstLabels: constLabels,
		}, []string{"account"}),

		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "bookingbot_workers_active",
			Help:        "Number of account workers currently inside a monitoring cycle.",
			ConstLabels: constLabels,
		}),
	}

	prometheus.MustRegister(
		m.cyclesTotal,
		m.cycleDuration,
		m.reservationAttempts,
		m.slotsSkipped,
		m.fetchErrors,
		m.workersActive,
	)

	return m
}

// IncCycle инкрементирует счетчик завершенных циклов
func (m *Metrics) IncCycle(account, result string) {
	m.cyclesTotal.WithLabelValues(account, result).Inc()
}

// ObserveCycleDuration записывает длительность цикла в секундах
func (m *Metrics) ObserveCycleDuration(account string, seconds float64) {
	m.cycleDuration.WithLabelValues(account).Observe(seconds)
}

// IncReservationAttempt инкрементирует счетчик попыток бронирования
func (m *Metrics) IncReservationAttempt(account, outcome string) {
	m.reservationAttempts.WithLabelValues(account, outcome).Inc()
}

// IncSlotSkipped инкрементирует счетчик пропущенных слотов
func (m *Metrics) IncSlotSkipped(account, reason string) {
	m.slotsSkipped.WithLabelValues(account, reason).Inc()
}

// IncFetchError инкрементирует счетчик ошибок получения списка сессий
func (m *Metrics) IncFetchError(account string) {
	m.fetchErrors.WithLabelValues(account).Inc()
}

// WorkerStarted отмечает вход воркера в цикл мониторинга
func (m *Metrics) WorkerStarted() {
	m.workersActive.Inc()
}

// WorkerFinished отмечает выход воркера из цикла мониторинга
func (m *Metrics) WorkerFinished() {
	m.workersActive.Dec()
}
