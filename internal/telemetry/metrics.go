package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mqbridge"

// Outcome — итог обработки сообщения.
type Outcome string

// Итоги обработки.
const (
	OutcomeSuccess Outcome = "success" // опубликовано в success
	OutcomeError   Outcome = "error"   // опубликовано в error
	OutcomeDead    Outcome = "dead"    // попытки исчерпаны
	OutcomeDropped Outcome = "dropped" // action не найден
	OutcomeSkipped Outcome = "skipped" // публикация не запрошена (needsResponse/needsError)
	OutcomeFailed  Outcome = "failed"  // бридж не готов или публикация не удалась
)

// Metrics — метрики бриджа. Методы безопасны для nil.
type Metrics struct {
	received     prometheus.Counter
	routed       *prometheus.CounterVec
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	inFlight     prometheus.Gauge
	ready        prometheus.Gauge
}

// NewMetrics регистрирует метрики в reg.
// Для глобального реестра — prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		received: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Messages received from the process queue.",
		}),
		routed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Messages by final outcome.",
		}, []string{"outcome"}),
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_calls_total",
			Help:      "HTTP call attempts by action and result.",
		}, []string{"action", "result"}),
		callDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_call_duration_seconds",
			Help:      "HTTP call attempt duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "messages_in_flight",
			Help:      "Messages currently being dispatched.",
		}),
		ready: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "1 when the bridge is subscribed to the process queue.",
		}),
	}
}

// MessageReceived учитывает входящее сообщение.
func (m *Metrics) MessageReceived() {
	if m == nil {
		return
	}
	m.received.Inc()
}

// MessageRouted учитывает итог обработки.
func (m *Metrics) MessageRouted(outcome Outcome) {
	if m == nil {
		return
	}
	m.routed.WithLabelValues(string(outcome)).Inc()
}

// ObserveCall учитывает одну попытку вызова сервиса.
func (m *Metrics) ObserveCall(action string, d time.Duration, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.calls.WithLabelValues(action, result).Inc()
	m.callDuration.WithLabelValues(action).Observe(d.Seconds())
}

// TrackInFlight увеличивает gauge и возвращает функцию для уменьшения.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// SetReady отмечает готовность бриджа.
func (m *Metrics) SetReady() {
	if m == nil {
		return
	}
	m.ready.Set(1)
}
