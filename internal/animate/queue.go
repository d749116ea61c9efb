package animate

import (
	"gtfsrt-livemap/internal/fleet"
	"gtfsrt-livemap/internal/mapview"
)

// Operation moves one vehicle's marker and path endpoint to Position.
type Operation struct {
	Vehicle  *fleet.Vehicle
	Position mapview.Point
}

func (o Operation) Apply(view mapview.View) {
	o.Vehicle.MoveTo(view, o.Position)
}

// FrameQueue holds the operations of one batch, one slot per animation step.
// Slots are consumed front to back and never reordered.
type FrameQueue struct {
	frames [][]Operation
	ops    int
}

func NewFrameQueue(steps int) *FrameQueue {
	return &FrameQueue{frames: make([][]Operation, steps)}
}

// Schedule appends op to slot step. step must be below the queue's depth.
func (q *FrameQueue) Schedule(step int, op Operation) {
	q.frames[step] = append(q.frames[step], op)
	q.ops++
}

// DrainOne removes and returns the front slot. ok is false once the queue is
// exhausted.
func (q *FrameQueue) DrainOne() (ops []Operation, ok bool) {
	if len(q.frames) == 0 {
		return nil, false
	}
	ops = q.frames[0]
	q.frames[0] = nil
	q.frames = q.frames[1:]
	q.ops -= len(ops)
	return ops, true
}

// Len is the number of slots left.
func (q *FrameQueue) Len() int { return len(q.frames) }

// Ops is the number of operations left across all slots.
func (q *FrameQueue) Ops() int { return q.ops }
