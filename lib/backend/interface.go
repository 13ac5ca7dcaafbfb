package backend

import (
	"errors"
	"fmt"

	"github.com/compudj/tracecompass/lib/interval"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// IHistoryBackend is the interface the trace-processing pipeline uses to
// record and query a state history.
// All write operations return only an error (nil on success), while read
// operations return the requested data along with an error (nil on success).
type IHistoryBackend interface {
	// InsertPastState records that the given attribute held the given value
	// over the closed time range [start, end]. Returns a RetCTimeRange
	// error for malformed bounds. Must not be called after
	// FinishedBuilding has returned.
	InsertPastState(start, end int64, attribute int, value []byte) error
	// FinishedBuilding marks the history as complete up to endTime and
	// finalizes the underlying store. No insertions may follow.
	FinishedBuilding(endTime int64) error
	// IsFinishedBuilding reports whether FinishedBuilding has completed.
	IsFinishedBuilding() bool
	// Dispose releases all resources. If called before FinishedBuilding,
	// the backend abandons the build and the store applies its own
	// incomplete-build cleanup policy.
	Dispose()
	// DoQuery fills results with the interval valid at time t for every
	// attribute, indexed by attribute id. Entries remain nil for
	// attributes with no value at t.
	DoQuery(results []*interval.Interval, t int64) error
	// DoSingularQuery returns the interval valid at time t for one
	// attribute. The boolean return value indicates whether such an
	// interval exists.
	DoSingularQuery(t int64, attribute int) (interval.Interval, bool, error)
	// StartTime returns the earliest timestamp covered by the history.
	StartTime() int64
	// EndTime returns the latest timestamp covered by the history so far.
	EndTime() int64
}

// IIntervalStore is the capability a history backend requires from its
// persistence collaborator.
//
// The contract assumes a single-writer/many-reader pattern: Insert and
// Close are only ever called from one goroutine for the store's entire
// lifetime, while Query and QuerySingle may run concurrently from any
// goroutine.
type IIntervalStore interface {
	// Insert adds one interval to the store. Returns a RetCTimeRange error
	// if the interval's bounds fall outside the store's timestamp domain.
	Insert(iv interval.Interval) error
	// Close finalizes the store with the given end timestamp and flushes
	// all persisted state. No insertions may follow.
	Close(endTime int64) error
	// Query fills results with the persisted interval valid at time t for
	// every attribute, indexed by attribute id.
	Query(results []*interval.Interval, t int64) error
	// QuerySingle returns the persisted interval valid at time t for one
	// attribute, if any.
	QuerySingle(t int64, attribute int) (interval.Interval, bool, error)
	// StartTime returns the earliest timestamp accepted by the store.
	StartTime() int64
	// EndTime returns the latest timestamp seen by the store so far.
	EndTime() int64
	// Dispose releases the store's resources. When discard is true the
	// build never completed and any persisted artifacts should be
	// discarded.
	Dispose(discard bool)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("HistoryBackendError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new backend Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// HasCode reports whether err is a backend Error carrying the given code.
func HasCode(err error, code RetCode) bool {
	var be *Error
	return errors.As(err, &be) && be.Code == code
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess           RetCode = iota // 0: Operation executed successfully.
	RetCTimeRange                        // 1: Interval bounds invalid for the store's timestamp domain.
	RetCDisposed                         // 2: Operation on a disposed backend or store.
	RetCCanceled                         // 3: A blocking operation was interrupted.
	RetCProtocolViolation                // 4: Broken internal invariant (malformed sentinel).
	RetCInternalError                    // 5: Operation failed due to an internal error.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCTimeRange:
		return "TimeRange"
	case RetCDisposed:
		return "Disposed"
	case RetCCanceled:
		return "Canceled"
	case RetCProtocolViolation:
		return "ProtocolViolation"
	case RetCInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}
