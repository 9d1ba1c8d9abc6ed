package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagstream_polls_issued_total",
		Help: "Total number of journal polls issued.",
	}, []string{"tag"})

	EntriesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagstream_entries_fetched_total",
		Help: "Total number of journal entries fetched and merged into buffers.",
	}, []string{"tag"})

	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagstream_events_delivered_total",
		Help: "Total number of envelopes delivered to consumers.",
	}, []string{"tag"})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagstream_fetch_errors_total",
		Help: "Total number of terminal fetch or decode failures.",
	}, []string{"tag"})

	BufferLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tagstream_buffer_length",
		Help: "Current number of buffered, undelivered envelopes.",
	}, []string{"tag"})

	DemandOutstanding = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tagstream_demand_outstanding",
		Help: "Requested-but-undelivered element count per publisher.",
	}, []string{"tag"})

	NextOffset = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tagstream_next_offset",
		Help: "Next journal offset the publisher will query from.",
	}, []string{"tag"})

	PublishersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tagstream_publishers_active",
		Help: "Number of running publishers.",
	})

	SSEClientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tagstream_sse_clients_active",
		Help: "Number of active SSE stream connections.",
	})

	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagstream_panics_recovered_total",
		Help: "Total number of panics recovered in supervised goroutines.",
	}, []string{"component"})
)
