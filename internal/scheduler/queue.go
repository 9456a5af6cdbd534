package scheduler

import (
	"container/heap"
	"fmt"

	"github.com/dreamware/toroidal-sim/internal/runtimectx"
)

// nextStepTime is the sentinel ScheduleOnce uses: "run at the next Step
// call" regardless of the clock's current value. Real tick times are
// never negative, so any ordinary less-than-or-equal due check already
// treats this as always due.
const nextStepTime = -1

type entry struct {
	time     float64
	ordering int
	seq      int64 // insertion order, breaks ties after (time, ordering)
	payload  any
	repeat   bool
	interval float64
}

// entryHeap is a min-heap ordered by (time, ordering, seq), the same
// container/heap.Interface shape the pack's own size-ranking heaps use
// (Len/Less/Swap/Push/Pop over a backing slice).
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.time != b.time {
		return a.time < b.time
	}
	if a.ordering != b.ordering {
		return a.ordering < b.ordering
	}
	return a.seq < b.seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue is the concrete scheduler.Handle: a priority queue of one-shot
// and repeating work items.
type Queue struct {
	items entryHeap
	seq   int64
}

// NewQueue returns an empty scheduler queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.items)
	return q
}

func (q *Queue) push(e *entry) {
	e.seq = q.seq
	q.seq++
	heap.Push(&q.items, e)
}

// ScheduleOnce implements Handle.
func (q *Queue) ScheduleOnce(agent any, ordering int) {
	q.push(&entry{time: nextStepTime, ordering: ordering, payload: agent})
}

// ScheduleAt implements Handle.
func (q *Queue) ScheduleAt(agent any, time float64, ordering int) {
	q.push(&entry{time: time, ordering: ordering, payload: agent})
}

// ScheduleRepeating implements Handle.
func (q *Queue) ScheduleRepeating(step any, time float64, interval float64, ordering int) {
	q.push(&entry{time: time, ordering: ordering, payload: step, repeat: true, interval: interval})
}

// NextTime implements Handle.
func (q *Queue) NextTime() (float64, bool) {
	if q.items.Len() == 0 {
		return 0, false
	}
	return q.items[0].time, true
}

// Step implements Handle: pops every due entry (time <= ctx.Clock.Now(),
// or any next-step entry regardless of clock), in ascending
// (time, ordering) order, runs its Stepper, and re-arms repeating
// entries at time+interval. Stops at the first error, matching spec.md
// §7's no-retries-at-the-core-layer policy; any entries not yet reached
// remain queued for a later Step call.
func (q *Queue) Step(ctx *runtimectx.Context) error {
	now := ctx.Clock.Now()
	var due []*entry
	for q.items.Len() > 0 && (q.items[0].time == nextStepTime || q.items[0].time <= now) {
		// heap.Pop always returns the current root, and entryHeap.Less
		// orders by (time, ordering, seq), so repeated pops already
		// yield entries in exactly that ascending order.
		due = append(due, heap.Pop(&q.items).(*entry))
	}
	for _, e := range due {
		stepper, ok := e.payload.(Stepper)
		if !ok {
			return fmt.Errorf("scheduler: payload scheduled with ordering %d does not implement Stepper", e.ordering)
		}
		if err := stepper.Step(ctx); err != nil {
			return err
		}
		if e.repeat {
			fireTime := e.time
			if fireTime == nextStepTime {
				fireTime = now
			}
			q.push(&entry{time: fireTime + e.interval, ordering: e.ordering, payload: e.payload,
				repeat: true, interval: e.interval})
		}
	}
	return nil
}
