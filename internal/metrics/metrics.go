package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintegrate_events_total",
			Help: "Outbox event lifecycle counter by stage and event type",
		},
		[]string{"stage", "event_type"}, // recorded|published|publish_failed|delivered|rejected
	)

	SweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintegrate_sweeps_total",
			Help: "Sweeper outcome counter by sweep kind and result",
		},
		[]string{"kind", "result"}, // resend|redeliver , succeeded|failed|skipped
	)

	ReceiptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintegrate_delivery_receipts_total",
			Help: "Delivery confirmations by processing status",
		},
		[]string{"status"}, // received|processed|failed|duplicate
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsTotal,
		SweepsTotal,
		ReceiptsTotal,
	)
}
