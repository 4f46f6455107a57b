// Package metrics - Prometheus метрики сервиса.
// Регистрируются в глобальном реестре при импорте пакета.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты операций для label result
const (
	ResultOK       = "ok"
	ResultConflict = "conflict"
	ResultError    = "error"
	ResultSkipped  = "skipped"
)

var (
	// Бизнес метрики
	BookingOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapstation_booking_operations_total",
		Help: "Операции с бронированиями по типу и результату",
	}, []string{"operation", "result"})

	SwapsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapstation_swaps_completed_total",
		Help: "Выполненные обмены аккумуляторов",
	})

	RedeemAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapstation_redeem_attempts_total",
		Help: "Попытки погасить код подтверждения",
	}, []string{"result"})

	CreditTopUpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapstation_credit_topups_total",
		Help: "Обработанные события пополнения подписки",
	}, []string{"result"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapstation_notifications_total",
		Help: "Отправленные уведомления по шаблону и результату",
	}, []string{"kind", "result"})

	// Фоновые задачи
	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapstation_job_runs_total",
		Help: "Запуски фоновых задач",
	}, []string{"job", "result"})

	JobItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapstation_job_items_total",
		Help: "Обработанные фоновыми задачами записи",
	}, []string{"job", "outcome"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapstation_job_duration_seconds",
		Help:    "Длительность запуска фоновой задачи",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapstation_http_requests_total",
		Help: "HTTP запросы по маршруту и статусу",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapstation_http_request_duration_seconds",
		Help:    "Длительность обработки HTTP запроса",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
