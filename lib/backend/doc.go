// Package backend defines the interfaces and error taxonomy of the state
// history backends.
//
// The package focuses on:
//   - A unified interface (IHistoryBackend) for recording and querying the
//     history of discrete attribute values over time
//   - A capability interface (IIntervalStore) for pluggable persistence,
//     so a concurrency layer can wrap any conforming store
//   - A structured error system using typed return codes
//
// Key Components:
//
//   - IHistoryBackend Interface: The operations a history-building pipeline
//     may invoke: interval insertion, build finalization, disposal, and
//     point-in-time queries. All implementations share this interface, so
//     the pipeline can switch between a direct and a threaded backend
//     without code changes.
//
//   - IIntervalStore Interface: The contract a backend requires from its
//     persistence collaborator. The store is mutated by exactly one
//     goroutine for its entire lifetime; implementations therefore need no
//     internal write synchronization, but must tolerate concurrent
//     read-only queries.
//
//   - Error System: A structured error reporting mechanism using typed
//     error codes (RetCode) and descriptive messages, mirroring the store
//     error contract: time-range violations, disposed-store access,
//     canceled blocking operations and internal protocol violations.
//
// Implementations:
//
//   - In-memory store (inmem): keeps all intervals in memory, ordered per
//     attribute. Available in the
//     "github.com/compudj/tracecompass/lib/backend/inmem" package.
//
//   - Threaded backend (threaded): decouples interval production from
//     persistence with a bounded queue and a dedicated writer goroutine.
//     Available in the
//     "github.com/compudj/tracecompass/lib/backend/threaded" package.
package backend
