package animate

import (
	"context"
	"time"

	"gtfsrt-livemap/internal/mapview"
)

// DefaultFrameInterval is the pause between two drained frames.
const DefaultFrameInterval = 16 * time.Millisecond

// SchedulerMetrics receives playback counters. Implementations must not block.
type SchedulerMetrics interface {
	FrameDrained(ops int)
	QueuesActive(n int)
}

// Scheduler plays back frame queues. Each started queue advances by one slot
// per Step, independently of the others, until it is exhausted. Queues are
// never merged or cancelled; a vehicle moved by two overlapping queues ends
// at whichever target was issued last.
type Scheduler struct {
	view    mapview.View
	queues  []*FrameQueue
	metrics SchedulerMetrics
}

func NewScheduler(view mapview.View, m SchedulerMetrics) *Scheduler {
	return &Scheduler{view: view, metrics: m}
}

// Start begins playback of q. A queue without operations has nothing to
// draw and is discarded.
func (s *Scheduler) Start(q *FrameQueue) {
	if q.Ops() == 0 {
		return
	}
	s.queues = append(s.queues, q)
	s.reportActive()
}

// Active is the number of queues still draining.
func (s *Scheduler) Active() int { return len(s.queues) }

// Step drains one frame from every active queue, oldest queue first, and
// applies its operations. It returns the number of operations applied.
func (s *Scheduler) Step() int {
	applied := 0
	live := s.queues[:0]
	for _, q := range s.queues {
		ops, ok := q.DrainOne()
		if !ok {
			continue
		}
		for _, op := range ops {
			op.Apply(s.view)
		}
		applied += len(ops)
		if s.metrics != nil {
			s.metrics.FrameDrained(len(ops))
		}
		if q.Len() > 0 {
			live = append(live, q)
		}
	}
	for i := len(live); i < len(s.queues); i++ {
		s.queues[i] = nil
	}
	s.queues = live
	s.reportActive()
	return applied
}

// Flush steps until every queue is exhausted.
func (s *Scheduler) Flush() {
	for s.Active() > 0 {
		s.Step()
	}
}

func (s *Scheduler) reportActive() {
	if s.metrics != nil {
		s.metrics.QueuesActive(len(s.queues))
	}
}

// Loop is the single goroutine that owns ingestion and playback. A batch is
// handled to completion before anything else runs; frames are drained one
// per timer turn so playback never starves incoming batches.
type Loop struct {
	sched    *Scheduler
	interval time.Duration
	handle   func(payload []byte)
	onFrame  func()
}

// NewLoop wires handle, typically an ingester, to the scheduler it feeds.
// onFrame, when set, runs after every drained frame.
func NewLoop(sched *Scheduler, interval time.Duration, handle func([]byte), onFrame func()) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{sched: sched, interval: interval, handle: handle, onFrame: onFrame}
}

// Run processes batches until ctx is done. When batches is closed the loop
// finishes the animations already in flight and returns nil.
func (l *Loop) Run(ctx context.Context, batches <-chan []byte) error {
	timer := time.NewTimer(l.interval)
	timer.Stop()
	defer timer.Stop()
	armed := false

	for {
		if !armed && l.sched.Active() > 0 {
			timer.Reset(l.interval)
			armed = true
		}
		if batches == nil && !armed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-batches:
			if !ok {
				batches = nil
				continue
			}
			l.handle(payload)
		case <-timer.C:
			armed = false
			l.sched.Step()
			if l.onFrame != nil {
				l.onFrame()
			}
		}
	}
}
