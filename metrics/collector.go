// Package metrics, badge senkronizasyonunun Prometheus metriklerini tanımlar.
//
// Collector kendi Registerer'ını alır; main.go ve testler ayrı bir
// prometheus.NewRegistry() verir.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/akinalp/badgesync/models"
)

const namespace = "badgesync"

// Push event sonuçları.
const (
	PushApplied   = "applied"
	PushSelf      = "self"
	PushDuplicate = "duplicate"
	PushInactive  = "inactive"
	PushMalformed = "malformed"
)

// Resync (poll / markRead) sonuçları.
const (
	ResyncApplied  = "applied"
	ResyncStale    = "stale"
	ResyncFailed   = "failed"
	ResyncInactive = "inactive"
)

// Collector, sync katmanının metrik vektörlerini tutar.
type Collector struct {
	counterValue *prometheus.GaugeVec
	pushEvents   *prometheus.CounterVec
	resyncs      *prometheus.CounterVec
	resets       *prometheus.CounterVec
	reconnects   prometheus.Counter
}

// NewCollector, metrikleri oluşturur ve reg'e kaydeder.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		counterValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "counter_value",
			Help:      "Current value of each unread badge counter.",
		}, []string{"counter"}),
		pushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_events_total",
			Help:      "Push events received per counter, by outcome.",
		}, []string{"counter", "outcome"}),
		resyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resync_total",
			Help:      "Authoritative counter fetches per counter, by outcome.",
		}, []string{"counter", "outcome"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "User initiated counter resets.",
		}, []string{"counter"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_reconnects_total",
			Help:      "Fresh push transport connections after the first one.",
		}),
	}

	reg.MustRegister(c.counterValue, c.pushEvents, c.resyncs, c.resets, c.reconnects)
	return c
}

// CounterChanged, CounterStore observer'ı olarak bağlanır.
func (c *Collector) CounterChanged(name models.CounterName, value int) {
	c.counterValue.WithLabelValues(string(name)).Set(float64(value))
}

func (c *Collector) PushEvent(name models.CounterName, outcome string) {
	c.pushEvents.WithLabelValues(string(name), outcome).Inc()
}

func (c *Collector) Resync(name models.CounterName, outcome string) {
	c.resyncs.WithLabelValues(string(name), outcome).Inc()
}

func (c *Collector) Reset(name models.CounterName) {
	c.resets.WithLabelValues(string(name)).Inc()
}

func (c *Collector) Reconnect() {
	c.reconnects.Inc()
}
