package rendertest

import (
	"fmt"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
)

const (
	QUEUE_GRAPHICS = "graphics"
	QUEUE_PRESENT  = "present"
	QUEUE_COMPUTE  = "compute"
)

type submission struct {
	queue    *Queue
	commands []*CommandBuffer
	fence    *Fence
}

// Queue completes submissions lazily, in order, when a fence of one of them
// is waited on or the queue is drained.
type Queue struct {
	b       *Backend
	name    string
	family  uint32
	pending []*submission
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) Family() uint32 {
	return q.family
}

func (q *Queue) Submit(batches []renderer.SubmitInfo, fence renderer.Fence) error {
	if q.b.deviceLost {
		return core.ErrDeviceLost
	}
	s := &submission{queue: q}
	if fence != nil {
		f, ok := fence.(*Fence)
		if !ok {
			return fmt.Errorf("foreign fence %T", fence)
		}
		if f.signaled || f.pending != nil {
			q.b.violate("fence %s submitted while signaled or pending", f.name)
			return fmt.Errorf("fence %s is not reset", f.name)
		}
		s.fence = f
	}

	for _, batch := range batches {
		for _, w := range batch.Waits {
			sem := w.Semaphore.(*Semaphore)
			if !sem.signaled {
				q.b.violate("%s queue waits on unsignaled semaphore %s", q.name, sem.name)
				return fmt.Errorf("semaphore %s has no pending signal", sem.name)
			}
			sem.signaled = false
		}
		for _, c := range batch.Commands {
			cb := c.(*CommandBuffer)
			if cb.state != cbExecutable {
				q.b.violate("command buffer %s submitted in state %d", cb.name, cb.state)
				return fmt.Errorf("command buffer %s is not executable", cb.name)
			}
			cb.state = cbPending
			q.b.ownership.apply(q, cb)
			s.commands = append(s.commands, cb)
		}
		for _, sig := range batch.Signals {
			sem := sig.(*Semaphore)
			if sem.signaled {
				q.b.violate("%s queue signals semaphore %s twice", q.name, sem.name)
				return fmt.Errorf("semaphore %s already signaled", sem.name)
			}
			sem.signaled = true
		}
		q.b.record(Event{Kind: EVENT_SUBMIT, Queue: q.name, Slot: slotOf(batch), Waits: waitNames(batch), Signals: signalNames(batch)})
	}

	if s.fence != nil {
		s.fence.pending = s
	}
	q.pending = append(q.pending, s)
	q.b.trackInFlight()
	return nil
}

func (q *Queue) WaitIdle() error {
	q.b.record(Event{Kind: EVENT_WAIT_IDLE, Queue: q.name})
	if q.b.deviceLost {
		return core.ErrDeviceLost
	}
	if len(q.pending) > 0 {
		q.completeThrough(q.pending[len(q.pending)-1])
	}
	return nil
}

func (q *Queue) completeThrough(last *submission) {
	for len(q.pending) > 0 {
		s := q.pending[0]
		q.pending = q.pending[1:]
		for _, cb := range s.commands {
			cb.execute()
			cb.state = cbExecutable
		}
		if s.fence != nil {
			s.fence.signaled = true
			s.fence.pending = nil
		}
		if s == last {
			return
		}
	}
}

func (q *Queue) inFlightCompute() int {
	n := 0
	for _, s := range q.pending {
		for _, cb := range s.commands {
			if cb.compute {
				n++
			}
		}
	}
	return n
}

func slotOf(batch renderer.SubmitInfo) int {
	for _, c := range batch.Commands {
		if cb, ok := c.(*CommandBuffer); ok && cb.compute {
			return cb.slot
		}
	}
	return -1
}

func waitNames(batch renderer.SubmitInfo) []string {
	var names []string
	for _, w := range batch.Waits {
		names = append(names, w.Semaphore.Name()+"@"+w.Stage.String())
	}
	return names
}

func signalNames(batch renderer.SubmitInfo) []string {
	var names []string
	for _, s := range batch.Signals {
		names = append(names, s.Name())
	}
	return names
}
