// FLV tag queue (C9 ingress side): a bounded FIFO with backpressure.
//
// The teacher's GOP cache is an unbounded-by-count container/list ring
// keyed off a byte budget, built for instant-playback replay to late
// joiners. This server has no playback fan-out, so C9 needs a genuinely
// bounded single-producer/single-consumer queue instead: capacity 256,
// a 100ms grace period under backpressure, then eviction of the oldest
// non-keyframe tag (or the newest tag itself, if every queued tag is a
// keyframe — spec 8 property 8 forbids ever dropping a keyframe that was
// already accepted).

package main

import (
	"sync"
	"time"
)

const flvQueueCapacity = 256
const flvQueueBackpressureGrace = 100 * time.Millisecond

type flvQueueEntry struct {
	tag   *FlvTag
	reset bool
	end   bool
}

// FlvQueue is the per-session bounded FIFO between C7 (which pushes tags
// as media messages complete) and the egress writer (which drains them).
type FlvQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items    []*flvQueueEntry
	capacity int
	closed   bool

	DroppedNonKeyframes uint64
	DroppedNewTags      uint64
}

func NewFlvQueue() *FlvQueue {
	q := &FlvQueue{capacity: flvQueueCapacity}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push enqueues tag, applying the grace-period-then-evict backpressure
// policy when the queue is full.
func (q *FlvQueue) Push(tag *FlvTag) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if len(q.items) >= q.capacity {
		deadline := time.Now().Add(flvQueueBackpressureGrace)
		timer := time.AfterFunc(flvQueueBackpressureGrace, func() {
			q.mu.Lock()
			q.notFull.Broadcast()
			q.mu.Unlock()
		})
		for len(q.items) >= q.capacity && !q.closed && time.Now().Before(deadline) {
			q.notFull.Wait()
		}
		timer.Stop()
	}

	if q.closed {
		return
	}

	if len(q.items) < q.capacity {
		q.items = append(q.items, &flvQueueEntry{tag: tag})
		q.notEmpty.Signal()
		return
	}

	q.evictForSpace(tag)
	q.notEmpty.Signal()
}

// evictForSpace is called with q.mu held and the queue already at
// capacity. It drops the oldest non-keyframe to make room for tag, or
// drops tag itself if every queued tag is a keyframe.
func (q *FlvQueue) evictForSpace(tag *FlvTag) {
	for i, e := range q.items {
		if e.tag != nil && !e.tag.isKeyframe() {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.DroppedNonKeyframes++
			q.items = append(q.items, &flvQueueEntry{tag: tag})
			return
		}
	}
	q.DroppedNewTags++
}

// Reset enqueues a flush/reset sentinel, used in loop mode between one
// publisher's disconnect and the next publisher's first tag.
func (q *FlvQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, &flvQueueEntry{reset: true})
	q.notEmpty.Signal()
}

// End enqueues an end-of-stream sentinel. It does not close the queue:
// later Push and Reset calls still append entries behind the sentinel.
func (q *FlvQueue) End() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, &flvQueueEntry{end: true})
	q.notEmpty.Signal()
}

// Shutdown immediately unblocks any Push/Pop in progress. Idempotent:
// calling it twice is a no-op the second time (spec 8 property 7).
func (q *FlvQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// pop blocks until an entry is available or the queue is closed and
// drained, returning (entry, true) or (nil, false).
func (q *FlvQueue) pop() (*flvQueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	q.notFull.Broadcast()
	return e, true
}
