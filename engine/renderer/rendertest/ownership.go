package rendertest

import (
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type familyPair struct {
	src, dst uint32
}

// ownership follows queue family ownership of exclusively shared buffers as
// submissions reach the queues. A release hands the buffer over, the acquire
// on the receiving queue must name the same family pair.
type ownership struct {
	owner    map[metadata.BufferHandle]uint32
	released map[metadata.BufferHandle]familyPair
}

func newOwnership() *ownership {
	return &ownership{
		owner:    make(map[metadata.BufferHandle]uint32),
		released: make(map[metadata.BufferHandle]familyPair),
	}
}

// handOver marks buffer as released from src to dst outside of any queue,
// the way setup leaves the uploaded particles.
func (o *ownership) handOver(buffer metadata.BufferHandle, src, dst uint32) {
	delete(o.owner, buffer)
	o.released[buffer] = familyPair{src: src, dst: dst}
}

// apply replays the ownership barriers of cb as executed by q.
func (o *ownership) apply(q *Queue, cb *CommandBuffer) {
	for _, cmd := range cb.commands {
		if cmd.kind != EVENT_BARRIER || !cmd.barrier.IsOwnershipTransfer() {
			continue
		}
		barrier := cmd.barrier
		pair := familyPair{src: barrier.SrcQueueFamily, dst: barrier.DstQueueFamily}
		switch q.family {
		case pair.src:
			o.release(q, barrier, pair)
		case pair.dst:
			o.acquire(q, barrier, pair)
		default:
			q.b.violate("%s queue (family %d) records a transfer of buffer %d from %d to %d",
				q.name, q.family, barrier.Buffer, pair.src, pair.dst)
		}
	}
}

func (o *ownership) release(q *Queue, barrier metadata.BufferBarrier, pair familyPair) {
	q.b.record(Event{Kind: EVENT_OWNERSHIP_RELEASE, Queue: q.name, Buffer: barrier.Buffer, Barrier: barrier})
	if owner, ok := o.owner[barrier.Buffer]; !ok || owner != pair.src {
		q.b.violate("%s queue releases buffer %d it does not own", q.name, barrier.Buffer)
	}
	o.handOver(barrier.Buffer, pair.src, pair.dst)
}

func (o *ownership) acquire(q *Queue, barrier metadata.BufferBarrier, pair familyPair) {
	q.b.record(Event{Kind: EVENT_OWNERSHIP_ACQUIRE, Queue: q.name, Buffer: barrier.Buffer, Barrier: barrier})
	pending, ok := o.released[barrier.Buffer]
	if !ok || pending != pair {
		q.b.violate("%s queue acquires buffer %d from family %d without a matching release", q.name, barrier.Buffer, pair.src)
	}
	delete(o.released, barrier.Buffer)
	o.owner[barrier.Buffer] = pair.dst
}
