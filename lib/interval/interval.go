// Package interval defines the state interval value type shared by the
// history backends and the insertion queue.
//
// An Interval records that one attribute held one value over the closed
// time range [Start, End]. Intervals are immutable once constructed: the
// producer creates them, the insertion queue owns them in transit, and the
// backing store owns them after insertion.
package interval

import "fmt"

// sentinelMarker is the reserved start time and attribute id of the
// shutdown sentinel. Attribute ids of real intervals are non-negative, so
// no data interval can ever be mistaken for the sentinel.
const sentinelMarker = -1

// Interval represents the value of a single attribute over the closed
// time range [Start, End].
type Interval struct {
	Start     int64  // Start of the validity range (inclusive)
	End       int64  // End of the validity range (inclusive)
	Attribute int    // Non-negative attribute id
	Value     []byte // Attribute value, nil represents the null state
}

// New creates a new immutable interval.
func New(start, end int64, attribute int, value []byte) Interval {
	return Interval{
		Start:     start,
		End:       end,
		Attribute: attribute,
		Value:     value,
	}
}

// NewSentinel creates the shutdown sentinel carrying the final timestamp
// of the history. It is the only interval for which Start > End may hold.
func NewSentinel(endTime int64) Interval {
	return Interval{
		Start:     sentinelMarker,
		End:       endTime,
		Attribute: sentinelMarker,
		Value:     nil,
	}
}

// HasSentinelStart reports whether the interval carries the reserved
// sentinel start time. The writer uses this as the termination test and
// then verifies the attribute id with IsSentinel.
func (iv Interval) HasSentinelStart() bool {
	return iv.Start == sentinelMarker
}

// IsSentinel reports whether the interval is a well-formed shutdown
// sentinel.
func (iv Interval) IsSentinel() bool {
	return iv.Start == sentinelMarker && iv.Attribute == sentinelMarker
}

// Intersects reports whether the given timestamp falls inside the
// interval's validity range.
func (iv Interval) Intersects(t int64) bool {
	return iv.Start <= t && t <= iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("Interval{attr: %d, range: [%d, %d]}", iv.Attribute, iv.Start, iv.End)
}
