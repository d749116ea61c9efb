package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Animator holds the metrics of the live map. It satisfies ingest.Metrics
// and animate.SchedulerMetrics. Batches is labelled by result
// (ok|decode_error), Snapshots by outcome (created|moved|stationary|stale).
type Animator struct {
	Batches        *prometheus.CounterVec
	Snapshots      *prometheus.CounterVec
	FramesDrained  prometheus.Counter
	RenderOps      prometheus.Counter
	ActiveQueues   prometheus.Gauge
	Vehicles       prometheus.Gauge
	IngestDuration prometheus.Histogram
	SceneClients   prometheus.Gauge
}

func NewAnimator(reg prometheus.Registerer) *Animator {
	m := &Animator{
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livemap_batches_total",
			Help: "Vehicle batches received from the live channel.",
		}, []string{"result"}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livemap_snapshots_total",
			Help: "Vehicle snapshots by ingestion outcome.",
		}, []string{"outcome"}),
		FramesDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livemap_frames_drained_total",
			Help: "Animation frames drained across all queues.",
		}),
		RenderOps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livemap_render_ops_total",
			Help: "Render operations applied.",
		}),
		ActiveQueues: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livemap_active_queues",
			Help: "Frame queues currently draining.",
		}),
		Vehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livemap_vehicles",
			Help: "Distinct vehicles seen this session.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "livemap_ingest_duration_seconds",
			Help:    "Time to decode and apply one batch.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		SceneClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livemap_scene_clients",
			Help: "Browsers subscribed to scene updates.",
		}),
	}
	reg.MustRegister(
		m.Batches, m.Snapshots, m.FramesDrained, m.RenderOps,
		m.ActiveQueues, m.Vehicles, m.IngestDuration, m.SceneClients,
	)
	return m
}

func (m *Animator) BatchIngested(ok bool) {
	if ok {
		m.Batches.WithLabelValues("ok").Inc()
	} else {
		m.Batches.WithLabelValues("decode_error").Inc()
	}
}

func (m *Animator) SnapshotOutcome(outcome string) { m.Snapshots.WithLabelValues(outcome).Inc() }
func (m *Animator) IngestObserve(d time.Duration)  { m.IngestDuration.Observe(d.Seconds()) }
func (m *Animator) VehiclesTracked(n int)          { m.Vehicles.Set(float64(n)) }
func (m *Animator) QueuesActive(n int)             { m.ActiveQueues.Set(float64(n)) }
func (m *Animator) ClientsConnected(n int)         { m.SceneClients.Set(float64(n)) }

func (m *Animator) FrameDrained(ops int) {
	m.FramesDrained.Inc()
	m.RenderOps.Add(float64(ops))
}
