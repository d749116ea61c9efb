package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Feed holds the metrics of the feed server. It satisfies feed.PollMetrics
// and relay.PublisherMetrics. Polls is labelled by result
// (changed|unchanged|error).
type Feed struct {
	Polls            *prometheus.CounterVec
	PollDuration     prometheus.Histogram
	RefreshInterval  prometheus.Gauge
	Vehicles         prometheus.Gauge
	BroadcastClients prometheus.Gauge
	NATSPublished    prometheus.Counter
	NATSPublishErrs  prometheus.Counter
	NATSConnected    prometheus.Gauge
}

func NewFeed(reg prometheus.Registerer) *Feed {
	m := &Feed{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visualizer_polls_total",
			Help: "Feed polls by result.",
		}, []string{"result"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "visualizer_poll_duration_seconds",
			Help:    "Time to fetch and decode the vehicle feed.",
			Buckets: prometheus.DefBuckets,
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "visualizer_refresh_interval_seconds",
			Help: "Current feed refresh interval.",
		}),
		Vehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "visualizer_vehicles",
			Help: "Vehicles in the last published batch.",
		}),
		BroadcastClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "visualizer_broadcast_clients",
			Help: "Websocket clients subscribed to vehicle batches.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visualizer_nats_published_total",
			Help: "Batches published to NATS.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visualizer_nats_publish_errors_total",
			Help: "NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "visualizer_nats_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
	}
	reg.MustRegister(
		m.Polls, m.PollDuration, m.RefreshInterval, m.Vehicles,
		m.BroadcastClients, m.NATSPublished, m.NATSPublishErrs, m.NATSConnected,
	)
	return m
}

func (m *Feed) PollResult(result string)           { m.Polls.WithLabelValues(result).Inc() }
func (m *Feed) PollObserve(d time.Duration)        { m.PollDuration.Observe(d.Seconds()) }
func (m *Feed) RefreshIntervalSet(d time.Duration) { m.RefreshInterval.Set(d.Seconds()) }
func (m *Feed) VehiclesPublished(n int)            { m.Vehicles.Set(float64(n)) }
func (m *Feed) ClientsConnected(n int)             { m.BroadcastClients.Set(float64(n)) }

func (m *Feed) NATSPublishedInc()  { m.NATSPublished.Inc() }
func (m *Feed) NATSPublishErrInc() { m.NATSPublishErrs.Inc() }

func (m *Feed) NATSSetConnected(connected bool) {
	if connected {
		m.NATSConnected.Set(1)
	} else {
		m.NATSConnected.Set(0)
	}
}
