package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests — HTTP запросы API по маршруту и статусу.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_api_http_requests_total",
		Help: "Total HTTP requests handled by journey-api",
	}, []string{"method", "route", "status"})

	// HTTPDuration — длительность обработки HTTP запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "journey_api_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// WalkQueries — запросы обхода графа.
	WalkQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_walk_queries_total",
		Help: "Dependency graph walks by direction and mode",
	}, []string{"direction", "mode"})

	// Resolutions — вычисления значений prefill.
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_prefill_resolutions_total",
		Help: "Prefill value resolutions by source kind and outcome",
	}, []string{"source", "outcome"})

	// CacheLookups — обращения к кэшу результатов обхода.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_cache_lookups_total",
		Help: "Walk cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	// WebhookDeliveries — доставки webhook о готовности формы.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_webhook_deliveries_total",
		Help: "Form-ready webhook deliveries by outcome",
	}, []string{"outcome"})

	// Messages — события, прочитанные из очередей RabbitMQ.
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_mq_messages_total",
		Help: "Consumed events by queue and outcome (ack, requeue, dead_letter, malformed)",
	}, []string{"queue", "outcome"})

	// IncompleteForms — количество узлов с неполными привязками по blueprint.
	IncompleteForms = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "journey_incomplete_forms",
		Help: "Nodes with unmapped required fields, per blueprint",
	}, []string{"blueprint_id"})
)

// ObserveHTTP записывает метрики одного HTTP запроса.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveWalk записывает запрос обхода.
func ObserveWalk(direction string, directOnly bool) {
	mode := "transitive"
	if directOnly {
		mode = "direct"
	}
	WalkQueries.WithLabelValues(direction, mode).Inc()
}

// ObserveResolution записывает результат вычисления prefill.
func ObserveResolution(source string, resolved bool) {
	outcome := "absent"
	if resolved {
		outcome = "resolved"
	}
	Resolutions.WithLabelValues(source, outcome).Inc()
}

// ObserveMessage записывает результат обработки события из очереди.
func ObserveMessage(queue, outcome string) {
	Messages.WithLabelValues(queue, outcome).Inc()
}
