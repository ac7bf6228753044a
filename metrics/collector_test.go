package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/akinalp/badgesync/models"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.CounterChanged(models.CounterChat, 4)
	c.PushEvent(models.CounterChat, PushApplied)
	c.PushEvent(models.CounterChat, PushApplied)
	c.Resync(models.CounterNotifications, ResyncStale)
	c.Reset(models.CounterNotifications)
	c.Reconnect()

	assert.Equal(t, 4.0, testutil.ToFloat64(c.counterValue.WithLabelValues("chat")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pushEvents.WithLabelValues("chat", PushApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resyncs.WithLabelValues("notifications", ResyncStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resets.WithLabelValues("notifications")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reconnects))
}

func TestCollectorRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	assert.Panics(t, func() { NewCollector(reg) })
}
