package queue

import (
	"errors"
	"iter"
	"sync"
)

// DefaultChunkSize is the number of elements staged per chunk before the
// chunk is published to the consumer.
const DefaultChunkSize = 127

// ErrCanceled is returned by Put and Take when the queue was interrupted
// while the caller was blocked (or before it could block).
var ErrCanceled = errors.New("queue: operation interrupted")

// BoundedChunkedQueue is a concurrency-safe, capacity-bounded FIFO queue.
//
// Elements inserted via Put are staged in a producer-side input buffer and
// become visible to Take only when the buffer reaches the chunk size, when
// the queue is at capacity, or when Flush is called. This trades a small
// visibility delay for far fewer producer/consumer handoffs.
type BoundedChunkedQueue[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	capacity  int // maximum resident elements (published + staged)
	chunkSize int

	chunks  [][]T // published chunks, consumed front to back
	headIdx int   // consumed prefix of chunks[0]
	input   []T   // staged elements, not yet visible to the consumer
	size    int   // resident element count

	interrupted bool
}

// NewBoundedChunkedQueue creates a queue holding at most capacity elements,
// published in chunks of chunkSize. A chunkSize <= 0 selects
// DefaultChunkSize; capacity must be at least 1.
func NewBoundedChunkedQueue[T any](capacity, chunkSize int) *BoundedChunkedQueue[T] {
	if capacity < 1 {
		panic("queue: capacity must be at least 1")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	q := &BoundedChunkedQueue[T]{
		capacity:  capacity,
		chunkSize: chunkSize,
		input:     make([]T, 0, chunkSize),
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Put inserts an element at the tail of the queue, blocking while the
// queue is full. It returns ErrCanceled if the queue is interrupted.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *BoundedChunkedQueue[T]) Put(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size >= q.capacity && !q.interrupted {
		q.notFull.Wait()
	}
	if q.interrupted {
		return ErrCanceled
	}

	q.input = append(q.input, v)
	q.size++

	// Publish when the chunk is complete. A full queue is also published
	// immediately: the consumer must be able to drain a queue whose
	// capacity is smaller than one chunk.
	if len(q.input) >= q.chunkSize || q.size >= q.capacity {
		q.publishLocked()
	}
	return nil
}

// Take removes and returns the element at the head of the queue, blocking
// while no published chunk is available. It returns ErrCanceled if the
// queue is interrupted.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *BoundedChunkedQueue[T]) Take() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.chunks) == 0 && !q.interrupted {
		q.notEmpty.Wait()
	}
	if q.interrupted {
		var zero T
		return zero, ErrCanceled
	}

	chunk := q.chunks[0]
	v := chunk[q.headIdx]
	q.headIdx++
	q.size--
	if q.headIdx == len(chunk) {
		q.chunks = q.chunks[1:]
		q.headIdx = 0
	}

	q.notFull.Signal()
	return v, nil
}

// Flush publishes any staged elements so they become consumable without
// waiting for the chunk to fill. It never blocks and is idempotent.
func (q *BoundedChunkedQueue[T]) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.publishLocked()
}

// publishLocked moves the staged input buffer to the published chunk list.
// Callers must hold q.mu.
func (q *BoundedChunkedQueue[T]) publishLocked() {
	if len(q.input) == 0 {
		return
	}
	q.chunks = append(q.chunks, q.input)
	q.input = make([]T, 0, q.chunkSize)
	q.notEmpty.Signal()
}

// All returns an iterator over the elements currently resident in the
// queue, head to tail, staged elements included. Each range over the
// returned sequence takes a fresh snapshot.
//
// The snapshot is taken under the queue lock but iteration runs without
// it, so the scan never blocks producers or the consumer. Elements taken
// or inserted while the scan is running may or may not be observed; an
// element resident for the whole scan is always observed.
func (q *BoundedChunkedQueue[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		q.mu.Lock()
		chunks := make([][]T, len(q.chunks))
		copy(chunks, q.chunks)
		head := q.headIdx
		staged := append([]T(nil), q.input...)
		q.mu.Unlock()

		// Published chunks are never written to again, only dropped from
		// the front, so iterating the snapshot is race-free.
		for i, chunk := range chunks {
			if i == 0 {
				chunk = chunk[head:]
			}
			for _, v := range chunk {
				if !yield(v) {
					return
				}
			}
		}
		for _, v := range staged {
			if !yield(v) {
				return
			}
		}
	}
}

// Interrupt wakes all callers blocked in Put or Take and makes every
// subsequent operation fail with ErrCanceled. Resident elements are
// discarded. Idempotent.
func (q *BoundedChunkedQueue[T]) Interrupt() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.interrupted = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Len returns the number of resident elements, staged elements included.
func (q *BoundedChunkedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Capacity returns the maximum number of resident elements.
func (q *BoundedChunkedQueue[T]) Capacity() int {
	return q.capacity
}
