package threaded

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/compudj/tracecompass/lib/backend"
	"github.com/compudj/tracecompass/lib/interval"
	"github.com/compudj/tracecompass/lib/queue"
)

var Logger = logger.GetLogger("statehistory")

var enqueuedTotal = metrics.GetOrCreateCounter(`statehistory_intervals_enqueued_total`)

// Config tunes the threaded backend behavior during initialization.
type Config struct {
	QueueSize int            // Maximum number of intervals in flight (0 = default: 10000)
	ChunkSize int            // Queue chunk size (0 = default: 127)
	Logger    logger.ILogger // Logger for the writer and shutdown paths (nil = package logger)
}

// DefaultConfig returns the default threaded backend configuration. A
// queue size between 2000 and 10000 usually works well.
func DefaultConfig() *Config {
	return &Config{
		QueueSize: 10000,
		ChunkSize: queue.DefaultChunkSize,
	}
}

type threadedBackend struct {
	store  backend.IIntervalStore
	queue  *queue.BoundedChunkedQueue[interval.Interval]
	writer *writerTask
	log    logger.ILogger

	finished atomic.Bool
	stopMu   sync.Mutex // serializes stopRunningThread, at most one sentinel per lifetime
}

// NewBackend wraps the given interval store in a threaded backend and
// starts the writer goroutine. The backend takes ownership of the store:
// from now on the store must only be touched through the backend.
//
// Thread-safety: This function is not thread-safe and should only be
// called once per store during initialization.
func NewBackend(store backend.IIntervalStore, cfg *Config) backend.IHistoryBackend {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultConfig().QueueSize
	}
	log := cfg.Logger
	if log == nil {
		log = Logger
	}

	q := queue.NewBoundedChunkedQueue[interval.Interval](queueSize, cfg.ChunkSize)

	// Registered once per process; the gauge follows the queue of the
	// first backend created.
	metrics.GetOrCreateGauge(`statehistory_queue_depth`, func() float64 {
		return float64(q.Len())
	})

	b := &threadedBackend{
		store:  store,
		queue:  q,
		writer: newWriterTask(store, q, log),
		log:    log,
	}
	go b.writer.run()

	return b
}

// --------------------------------------------------------------------------
// Interface Methods - Insertion Path (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (b *threadedBackend) InsertPastState(start, end int64, attribute int, value []byte) error {
	if b.finished.Load() {
		return backend.NewError(backend.RetCInternalError, "insertion after finished building")
	}
	if start > end || start < b.store.StartTime() {
		return backend.NewError(backend.RetCTimeRange,
			fmt.Sprintf("invalid interval bounds [%d, %d] (history starts at %d)", start, end, b.store.StartTime()))
	}
	if attribute < 0 {
		return backend.NewError(backend.RetCTimeRange,
			fmt.Sprintf("negative attribute id %d", attribute))
	}

	// Instead of applying the interval to the store directly, hand it to
	// the writer goroutine. Put blocks while the queue is full, which is
	// the backpressure that keeps producers from outrunning the writer.
	if err := b.queue.Put(interval.New(start, end, attribute, value)); err != nil {
		return backend.NewError(backend.RetCCanceled,
			fmt.Sprintf("interval insertion interrupted: %v", err))
	}
	enqueuedTotal.Inc()
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods - Lifecycle (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (b *threadedBackend) FinishedBuilding(endTime int64) error {
	// Everything pending must be committed and the writer stopped before
	// the caller may persist anything derived from the finished history
	// (that must not happen while the last intervals are being written).
	b.stopRunningThread(endTime)
	b.finished.Store(true)
	return nil
}

func (b *threadedBackend) IsFinishedBuilding() bool {
	return b.finished.Load()
}

func (b *threadedBackend) Dispose() {
	if !b.finished.Load() {
		// Abandoning the build. Close out whatever we have; finished
		// stays false so the store applies its incomplete-build cleanup.
		b.stopRunningThread(math.MaxInt64)
	}
	b.store.Dispose(!b.finished.Load())
}

// stopRunningThread stops the writer goroutine by enqueuing the shutdown
// sentinel with the given end time and waiting for the writer to consume
// it. A no-op if the writer has already terminated. Failures are logged,
// never propagated: this runs on cleanup paths that must not fail outward.
func (b *threadedBackend) stopRunningThread(endTime int64) {
	b.stopMu.Lock()
	defer b.stopMu.Unlock()

	if b.writer.stopped() {
		return
	}

	if err := b.queue.Put(interval.NewSentinel(endTime)); err != nil {
		b.log.Errorf("error closing state history: %v", err)
		return
	}
	// The sentinel may sit in a partially filled chunk; force it out.
	b.queue.Flush()
	<-b.writer.done
}

// --------------------------------------------------------------------------
// Interface Methods - Query Path (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (b *threadedBackend) DoQuery(results []*interval.Interval, t int64) error {
	if err := b.store.Query(results, t); err != nil {
		return err
	}

	if b.finished.Load() {
		// The store is the only place to look for intervals once
		// construction is finished.
		return nil
	}

	// Some attributes may have resolved to nothing only because their
	// interval is still sitting in the queue. Re-resolve those
	// individually.
	for attr, res := range results {
		if res != nil {
			continue
		}
		iv, found, err := b.DoSingularQuery(t, attr)
		if err != nil {
			return err
		}
		if found {
			results[attr] = &iv
		}
	}
	return nil
}

func (b *threadedBackend) DoSingularQuery(t int64, attribute int) (interval.Interval, bool, error) {
	iv, found, err := b.store.QuerySingle(t, attribute)
	if err != nil || found {
		return iv, found, err
	}

	if b.finished.Load() {
		return interval.Interval{}, false, nil
	}

	// The interval may still be in the queue, waiting to be written.
	// The snapshot scan runs concurrently with the writer, no locking
	// required.
	for cand := range b.queue.All() {
		if cand.Attribute == attribute && cand.Intersects(t) {
			return cand, true, nil
		}
	}

	// If we missed it again, the writer inserted it into the store while
	// we were scanning the queue. One last store pass settles it: absent
	// now means genuinely absent. This case is rare, which is why the
	// store is asked first instead of always scanning the queue.
	return b.store.QuerySingle(t, attribute)
}

// --------------------------------------------------------------------------
// Interface Methods - Time Range (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (b *threadedBackend) StartTime() int64 {
	return b.store.StartTime()
}

func (b *threadedBackend) EndTime() int64 {
	return b.store.EndTime()
}
