package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит доменные и HTTP-метрики сервиса.
// Методы безопасны для nil-получателя, поэтому сервисы могут работать без метрик.
type Metrics struct {
	ordersCreated     prometheus.Counter
	ordersDeleted     prometheus.Counter
	statusTransitions *prometheus.CounterVec
	paymentsRecorded  prometheus.Counter
	paymentStatuses   *prometheus.CounterVec
	conflicts         *prometheus.CounterVec
	reviewsReported   prometheus.Counter
	reviewsResolved   *prometheus.CounterVec
	timelineEvents    prometheus.Counter

	cleanupRuns        *prometheus.CounterVec
	cleanupDeleted     prometheus.Counter
	cleanupLastDeleted prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New регистрирует метрики в prometheus.DefaultRegisterer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		ordersCreated: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ryujin_orders_created_total",
			Help: "Total number of orders placed.",
		})),
		ordersDeleted: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ryujin_orders_deleted_total",
			Help: "Total number of orders deleted by administrators.",
		})),
		statusTransitions: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ryujin_order_status_transitions_total",
			Help: "Order status transitions grouped by source and target status.",
		}, []string{"from", "to"})),
		paymentsRecorded: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ryujin_payments_recorded_total",
			Help: "Total number of payments attached to orders.",
		})),
		paymentStatuses: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ryujin_payment_status_changes_total",
			Help: "Payment status changes grouped by new status.",
		}, []string{"status"})),
		conflicts: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ryujin_concurrency_conflicts_total",
			Help: "Optimistic locking conflicts grouped by entity and reason.",
		}, []string{"entity", "reason"})),
		reviewsReported: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ryujin_reviews_reported_total",
			Help: "Total number of reviews reported for moderation.",
		})),
		reviewsResolved: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ryujin_reviews_resolved_total",
			Help: "Resolved review reports grouped by action.",
		}, []string{"action"})),
		timelineEvents: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ryujin_timeline_events_total",
			Help: "Total number of order timeline events recorded.",
		})),
		cleanupRuns: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ryujin_idempotency_cleanup_runs_total",
			Help: "Idempotency cleanup runs grouped by result.",
		}, []string{"result"})),
		cleanupDeleted: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ryujin_idempotency_cleanup_deleted_total",
			Help: "Total number of expired Idempotency-Key records removed.",
		})),
		cleanupLastDeleted: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ryujin_idempotency_cleanup_last_deleted",
			Help: "Number of records removed by the last successful cleanup run.",
		})),
		httpRequests: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ryujin_http_requests_total",
			Help: "HTTP requests grouped by method, route and status code.",
		}, []string{"method", "route", "status"})),
		httpDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ryujin_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"})),
	}
}

// register регистрирует коллектор; при повторной регистрации возвращает существующий
// коллектор того же типа.
func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := already.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", already.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// OrderCreated увеличивает счётчик созданных заказов.
func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// OrderDeleted увеличивает счётчик удалённых заказов.
func (m *Metrics) OrderDeleted() {
	if m == nil {
		return
	}
	m.ordersDeleted.Inc()
}

// StatusTransition фиксирует смену статуса заказа.
func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// PaymentRecorded увеличивает счётчик платежей.
func (m *Metrics) PaymentRecorded() {
	if m == nil {
		return
	}
	m.paymentsRecorded.Inc()
}

// PaymentStatusChanged фиксирует новый статус платежа.
func (m *Metrics) PaymentStatusChanged(status string) {
	if m == nil {
		return
	}
	m.paymentStatuses.WithLabelValues(status).Inc()
}

// Conflict фиксирует конфликт optimistic locking.
func (m *Metrics) Conflict(entity, reason string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(entity, reason).Inc()
}

// ReviewReported увеличивает счётчик жалоб.
func (m *Metrics) ReviewReported() {
	if m == nil {
		return
	}
	m.reviewsReported.Inc()
}

// ReviewResolved фиксирует решение по жалобе.
func (m *Metrics) ReviewResolved(action string) {
	if m == nil {
		return
	}
	m.reviewsResolved.WithLabelValues(action).Inc()
}

// TimelineEvent увеличивает счётчик событий истории заказа.
func (m *Metrics) TimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// IdempotencyCleanup учитывает цикл очистки ключей идемпотентности.
func (m *Metrics) IdempotencyCleanup(ok bool, deleted int) {
	if m == nil {
		return
	}
	m.cleanupDeleted.Add(float64(deleted))
	if !ok {
		m.cleanupRuns.WithLabelValues("error").Inc()
		return
	}
	m.cleanupRuns.WithLabelValues("ok").Inc()
	m.cleanupLastDeleted.Set(float64(deleted))
}

// ObserveHTTP записывает результат HTTP-запроса.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, fmt.Sprint(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
