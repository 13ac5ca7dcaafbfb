// Package queue provides a capacity-bounded, chunked, blocking FIFO queue
// used as the handoff between interval producers and the single writer
// goroutine of the threaded history backend.
//
// Features and Guarantees:
//
//   - Bounded: Put suspends the caller while the queue is full, implementing
//     backpressure instead of unbounded memory growth
//   - Blocking consumption: Take suspends the caller while no published
//     chunk is available
//   - Chunked: elements are staged in a producer-side buffer and published
//     to the consumer one chunk at a time (default 127 elements) to amortize
//     synchronization overhead
//   - Flush: a non-blocking, idempotent operation that publishes a partially
//     filled trailing chunk, so a control element is deliverable without
//     waiting for the chunk to fill
//   - Snapshot iteration: All() yields the currently resident elements and
//     is safe to run concurrently with ongoing Put/Take calls; elements
//     added or removed during the scan may or may not be observed
//   - Interruption: Interrupt() wakes all blocked callers with ErrCanceled
//
// Strict FIFO order is preserved between Put and Take: elements are
// consumed in exactly the order they were inserted, regardless of chunk
// boundaries.
package queue
