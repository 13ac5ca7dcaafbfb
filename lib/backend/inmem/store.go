// Package inmem provides an in-memory implementation of the
// backend.IIntervalStore capability.
//
// Intervals are kept per attribute, ordered by end time, so point-in-time
// queries resolve with a binary search. The store relies on the interval
// store contract: all mutation comes from a single goroutine, while
// queries may run concurrently from any goroutine. Per-attribute interval
// lists are therefore guarded by a read-write lock only, and the attribute
// index itself is a concurrent map.
package inmem

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/compudj/tracecompass/lib/backend"
	"github.com/compudj/tracecompass/lib/interval"
)

// attrHistory holds all intervals recorded for one attribute, ordered by
// end time.
type attrHistory struct {
	mu  sync.RWMutex
	ivs []interval.Interval
}

type storeImpl struct {
	startTime int64
	endTime   atomic.Int64
	attrs     *xsync.MapOf[int, *attrHistory]
	disposed  atomic.Bool
}

// NewStore creates a new in-memory interval store. No interval with a
// start time earlier than startTime will be accepted.
func NewStore(startTime int64) backend.IIntervalStore {
	s := &storeImpl{
		startTime: startTime,
		attrs:     xsync.NewMapOf[int, *attrHistory](),
	}
	s.endTime.Store(startTime)
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Insert(iv interval.Interval) error {
	if s.disposed.Load() {
		return backend.NewError(backend.RetCDisposed, "insert into disposed store")
	}
	if iv.Start > iv.End || iv.Start < s.startTime {
		return backend.NewError(backend.RetCTimeRange,
			fmt.Sprintf("invalid interval bounds [%d, %d] (history starts at %d)", iv.Start, iv.End, s.startTime))
	}

	hist, _ := s.attrs.LoadOrCompute(iv.Attribute, func() *attrHistory {
		return &attrHistory{}
	})

	hist.mu.Lock()
	idx := sort.Search(len(hist.ivs), func(i int) bool {
		return hist.ivs[i].End >= iv.End
	})
	hist.ivs = append(hist.ivs, interval.Interval{})
	copy(hist.ivs[idx+1:], hist.ivs[idx:])
	hist.ivs[idx] = iv
	hist.mu.Unlock()

	// Track the latest timestamp seen so far.
	for {
		cur := s.endTime.Load()
		if iv.End <= cur || s.endTime.CompareAndSwap(cur, iv.End) {
			break
		}
	}
	return nil
}

func (s *storeImpl) Close(endTime int64) error {
	if s.disposed.Load() {
		return backend.NewError(backend.RetCDisposed, "close of disposed store")
	}
	for {
		cur := s.endTime.Load()
		if endTime <= cur || s.endTime.CompareAndSwap(cur, endTime) {
			return nil
		}
	}
}

func (s *storeImpl) Query(results []*interval.Interval, t int64) error {
	if err := s.checkQueryTime(t); err != nil {
		return err
	}
	s.attrs.Range(func(attr int, hist *attrHistory) bool {
		if attr >= len(results) {
			return true
		}
		if iv, found := hist.query(t); found {
			results[attr] = &iv
		}
		return true
	})
	return nil
}

func (s *storeImpl) QuerySingle(t int64, attribute int) (interval.Interval, bool, error) {
	if err := s.checkQueryTime(t); err != nil {
		return interval.Interval{}, false, err
	}
	hist, ok := s.attrs.Load(attribute)
	if !ok {
		return interval.Interval{}, false, nil
	}
	iv, found := hist.query(t)
	return iv, found, nil
}

func (s *storeImpl) StartTime() int64 {
	return s.startTime
}

func (s *storeImpl) EndTime() int64 {
	return s.endTime.Load()
}

func (s *storeImpl) Dispose(discard bool) {
	// Nothing on disk to delete for an incomplete build, the memory is
	// released either way.
	s.disposed.Store(true)
	s.attrs.Clear()
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

func (s *storeImpl) checkQueryTime(t int64) error {
	if s.disposed.Load() {
		return backend.NewError(backend.RetCDisposed, "query on disposed store")
	}
	// Only the history start bounds queries. A timestamp past the latest
	// persisted end is not an error: during an active build the store
	// lags intervals still in flight, and the caller needs an absent
	// answer here so it can reconcile against its insertion queue.
	if t < s.startTime {
		return backend.NewError(backend.RetCTimeRange,
			fmt.Sprintf("query time %d before history start %d", t, s.startTime))
	}
	return nil
}

// query returns the interval containing t, if any.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (h *attrHistory) query(t int64) (interval.Interval, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Intervals of one attribute never overlap, so the first interval
	// ending at or after t is the only candidate.
	idx := sort.Search(len(h.ivs), func(i int) bool {
		return h.ivs[i].End >= t
	})
	if idx < len(h.ivs) && h.ivs[idx].Start <= t {
		return h.ivs[idx], true
	}
	return interval.Interval{}, false
}
