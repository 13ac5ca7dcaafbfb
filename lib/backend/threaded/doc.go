// Package threaded provides a history backend that runs all interval
// insertion in a dedicated writer goroutine.
//
// Producers enqueue intervals into a bounded chunked queue and return
// immediately; the writer drains the queue in FIFO order and applies each
// interval to the wrapped interval store. Because the writer is the only
// goroutine that ever mutates the store, the store needs no internal write
// synchronization. When the queue is full, producers block until the
// writer catches up (backpressure).
//
// Shutdown enqueues a sentinel interval behind all pending data and then
// flushes the queue, so the writer is guaranteed to observe every interval
// before it finalizes the store — pending data is never reordered or
// dropped by shutdown.
//
// Queries issued while the history is still being built reconcile the
// store's answer against the intervals still sitting in the queue, in
// three phases: ask the store, scan the queue, ask the store again. The
// second store pass closes the window in which an interval has left the
// queue but was not yet visible in the store during the first pass. Once
// building has finished the store is authoritative and queries skip the
// reconciliation entirely.
//
// Nothing in this package ever interrupts the queue; orderly shutdown
// always goes through the sentinel. The interruption handling (the
// RetCCanceled error from InsertPastState, the writer's interrupted-drain
// exit) covers the queue's own cancellation surface, queue.Interrupt — a
// degraded, logged path delivered from outside the backend, never part of
// normal operation.
package threaded
