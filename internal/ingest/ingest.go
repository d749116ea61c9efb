// Package ingest applies decoded vehicle batches to the registry and turns
// the resulting moves into frame queues.
package ingest

import (
	"log"
	"time"

	"github.com/google/uuid"

	"gtfsrt-livemap/internal/animate"
	"gtfsrt-livemap/internal/fleet"
	"gtfsrt-livemap/internal/mapview"
)

// Metrics receives ingestion counters. A nil Metrics is allowed.
type Metrics interface {
	BatchIngested(ok bool)
	SnapshotOutcome(outcome string)
	IngestObserve(d time.Duration)
	VehiclesTracked(n int)
}

// Report summarizes one ingested batch.
type Report struct {
	BatchID    string
	Snapshots  int
	Created    int
	Moved      int
	Stationary int
	Stale      int
	Operations int
	Fitted     bool
	// Center is the middle of the fitted viewport, set when Fitted.
	Center mapview.Point
}

type Ingester struct {
	view     mapview.View
	registry *fleet.Registry
	sched    *animate.Scheduler
	steps    int
	metrics  Metrics

	// fitted is set once the viewport has been fitted to a non-empty batch.
	fitted bool
}

func New(view mapview.View, registry *fleet.Registry, sched *animate.Scheduler, steps int, m Metrics) *Ingester {
	if steps < 1 {
		steps = animate.DefaultSteps
	}
	return &Ingester{view: view, registry: registry, sched: sched, steps: steps, metrics: m}
}

// Ingest decodes payload and applies it. On a decode error nothing is
// touched. The populated queue is handed to the scheduler; Ingest never waits
// for playback.
func (in *Ingester) Ingest(payload []byte) (Report, error) {
	start := time.Now()
	rep := Report{BatchID: uuid.NewString()}

	snapshots, err := fleet.DecodeBatch(payload)
	if err != nil {
		in.observeBatch(false, start)
		return rep, err
	}
	rep.Snapshots = len(snapshots)

	queue := animate.NewFrameQueue(in.steps)
	var bounds mapview.Bounds
	for _, s := range snapshots {
		outcome := in.apply(s, queue)
		switch outcome {
		case outcomeStale:
			rep.Stale++
			in.observeSnapshot(outcome)
			continue
		case outcomeCreated:
			rep.Created++
		case outcomeMoved:
			rep.Moved++
		case outcomeStationary:
			rep.Stationary++
		}
		in.observeSnapshot(outcome)
		bounds.Extend(s.Point())
	}

	if !in.fitted && !bounds.IsEmpty() {
		in.view.FitViewport(bounds)
		in.fitted = true
		rep.Fitted = true
		rep.Center = bounds.Center()
	}

	rep.Operations = queue.Ops()
	in.sched.Start(queue)
	in.observeBatch(true, start)
	if in.metrics != nil {
		in.metrics.VehiclesTracked(in.registry.Len())
	}
	return rep, nil
}

// Handle ingests payload and logs the outcome. It is the batch handler of
// the frame loop.
func (in *Ingester) Handle(payload []byte) {
	rep, err := in.Ingest(payload)
	if err != nil {
		log.Printf("batch=%s dropped: %v", rep.BatchID, err)
		return
	}
	log.Printf("batch=%s snapshots=%d created=%d moved=%d stationary=%d stale=%d ops=%d",
		rep.BatchID, rep.Snapshots, rep.Created, rep.Moved, rep.Stationary, rep.Stale, rep.Operations)
	if rep.Fitted {
		log.Printf("batch=%s viewport fitted center=%.5f,%.5f", rep.BatchID, rep.Center.Lat, rep.Center.Lon)
	}
}

const (
	outcomeCreated    = "created"
	outcomeMoved      = "moved"
	outcomeStationary = "stationary"
	outcomeStale      = "stale"
)

func (in *Ingester) apply(s fleet.Snapshot, queue *animate.FrameQueue) string {
	v, res := in.registry.Resolve(s)
	switch res {
	case fleet.Created:
		return outcomeCreated
	case fleet.Stale:
		return outcomeStale
	}
	positions := animate.Plan(in.view, v, s.Point(), s.LastUpdate, in.steps)
	if len(positions) == 0 {
		return outcomeStationary
	}
	for i, p := range positions {
		queue.Schedule(i, animate.Operation{Vehicle: v, Position: p})
	}
	return outcomeMoved
}

func (in *Ingester) observeBatch(ok bool, start time.Time) {
	if in.metrics == nil {
		return
	}
	in.metrics.BatchIngested(ok)
	in.metrics.IngestObserve(time.Since(start))
}

func (in *Ingester) observeSnapshot(outcome string) {
	if in.metrics != nil {
		in.metrics.SnapshotOutcome(outcome)
	}
}
