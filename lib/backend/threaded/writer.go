package threaded

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/compudj/tracecompass/lib/backend"
	"github.com/compudj/tracecompass/lib/interval"
	"github.com/compudj/tracecompass/lib/queue"
)

var (
	insertedTotal     = metrics.GetOrCreateCounter(`statehistory_intervals_inserted_total`)
	insertErrorsTotal = metrics.GetOrCreateCounter(`statehistory_insert_errors_total`)
)

// writerTask is the body of the single writer goroutine. It drains the
// interval queue and applies every interval to the store, until it
// observes the shutdown sentinel, at which point it finalizes the store
// and terminates. The channel done is closed when the task has returned.
type writerTask struct {
	store backend.IIntervalStore
	queue *queue.BoundedChunkedQueue[interval.Interval]
	log   logger.ILogger
	done  chan struct{}
}

func newWriterTask(store backend.IIntervalStore, q *queue.BoundedChunkedQueue[interval.Interval], log logger.ILogger) *writerTask {
	return &writerTask{
		store: store,
		queue: q,
		log:   log,
		done:  make(chan struct{}),
	}
}

// run consumes the queue until the sentinel. It is the only code path
// that ever mutates the store.
func (w *writerTask) run() {
	defer close(w.done)

	for {
		iv, err := w.queue.Take()
		if err != nil {
			// The queue was interrupted underneath us. Nothing sane can
			// be flushed anymore, leave the store unfinalized.
			w.log.Errorf("writer interrupted while draining queue: %v", err)
			return
		}

		if !iv.HasSentinelStart() {
			if err := w.store.Insert(iv); err != nil {
				// No producer is synchronously waiting on this insertion,
				// so the error can only be reported to the log. The
				// interval is dropped.
				w.log.Errorf("dropping interval %s: %v", iv, err)
				insertErrorsTotal.Inc()
				continue
			}
			insertedTotal.Inc()
			continue
		}

		if !iv.IsSentinel() {
			// A reserved start time on anything but the sentinel means a
			// producer broke the protocol. Not recoverable.
			w.log.Panicf("writer received non-sentinel interval with reserved start time: %s", iv)
		}

		// The end time of the sentinel is the real end of the history.
		if err := w.store.Close(iv.End); err != nil {
			w.log.Errorf("error closing history store: %v", err)
		}
		return
	}
}

// stopped reports whether the writer goroutine has terminated.
func (w *writerTask) stopped() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}
