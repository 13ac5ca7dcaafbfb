package inmem

import (
	"testing"

	"github.com/compudj/tracecompass/lib/backend"
	"github.com/compudj/tracecompass/lib/interval"
)

func TestInsertAndQuerySingle(t *testing.T) {
	s := NewStore(0)

	ivs := []interval.Interval{
		interval.New(0, 9, 1, []byte("a")),
		interval.New(10, 19, 1, []byte("b")),
		interval.New(5, 25, 2, []byte("c")),
	}
	for _, iv := range ivs {
		if err := s.Insert(iv); err != nil {
			t.Fatalf("Insert(%s) failed: %v", iv, err)
		}
	}

	// Range bounds are inclusive on both ends.
	for _, tc := range []struct {
		t     int64
		attr  int
		value string
		found bool
	}{
		{0, 1, "a", true},
		{9, 1, "a", true},
		{10, 1, "b", true},
		{19, 1, "b", true},
		{4, 2, "", false},
		{5, 2, "c", true},
		{25, 2, "c", true},
		{20, 1, "", false},
		{7, 3, "", false},
	} {
		iv, found, err := s.QuerySingle(tc.t, tc.attr)
		if err != nil {
			t.Fatalf("QuerySingle(%d, %d) failed: %v", tc.t, tc.attr, err)
		}
		if found != tc.found {
			t.Errorf("QuerySingle(%d, %d): found=%v, expected %v", tc.t, tc.attr, found, tc.found)
			continue
		}
		if found && string(iv.Value) != tc.value {
			t.Errorf("QuerySingle(%d, %d): got value %q, expected %q", tc.t, tc.attr, iv.Value, tc.value)
		}
	}
}

// TestOutOfOrderEndTimes verifies intervals are queryable no matter the
// insertion order of their end times.
func TestOutOfOrderEndTimes(t *testing.T) {
	s := NewStore(0)

	if err := s.Insert(interval.New(20, 30, 7, []byte("late"))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Insert(interval.New(0, 10, 7, []byte("early"))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	iv, found, err := s.QuerySingle(5, 7)
	if err != nil || !found {
		t.Fatalf("QuerySingle(5, 7) = found=%v, err=%v", found, err)
	}
	if string(iv.Value) != "early" {
		t.Errorf("Expected early interval, got %q", iv.Value)
	}
}

func TestQueryFillsByAttribute(t *testing.T) {
	s := NewStore(0)

	if err := s.Insert(interval.New(0, 10, 0, []byte("x"))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Insert(interval.New(0, 10, 2, []byte("y"))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	results := make([]*interval.Interval, 3)
	if err := s.Query(results, 5); err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if results[0] == nil || string(results[0].Value) != "x" {
		t.Errorf("Expected attribute 0 resolved to x, got %v", results[0])
	}
	if results[1] != nil {
		t.Errorf("Expected attribute 1 unresolved, got %v", results[1])
	}
	if results[2] == nil || string(results[2].Value) != "y" {
		t.Errorf("Expected attribute 2 resolved to y, got %v", results[2])
	}
}

func TestTimeRangeValidation(t *testing.T) {
	s := NewStore(100)

	// Malformed bounds and starts before the history are rejected.
	if err := s.Insert(interval.New(200, 150, 1, nil)); !backend.HasCode(err, backend.RetCTimeRange) {
		t.Errorf("Expected TimeRange error for start > end, got %v", err)
	}
	if err := s.Insert(interval.New(50, 150, 1, nil)); !backend.HasCode(err, backend.RetCTimeRange) {
		t.Errorf("Expected TimeRange error for start before history, got %v", err)
	}

	// Queries before the history start are errors.
	if _, _, err := s.QuerySingle(50, 1); !backend.HasCode(err, backend.RetCTimeRange) {
		t.Errorf("Expected TimeRange error for early query, got %v", err)
	}

	// Queries past the latest persisted end are not errors: the interval
	// may simply still be in flight. They resolve to absent.
	if err := s.Insert(interval.New(100, 110, 1, nil)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, found, err := s.QuerySingle(500, 1); err != nil || found {
		t.Errorf("Expected absent for query past store end, got found=%v, err=%v", found, err)
	}
}

func TestCloseExtendsEndTime(t *testing.T) {
	s := NewStore(0)

	if err := s.Insert(interval.New(0, 10, 1, nil)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Close(100); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.EndTime() != 100 {
		t.Errorf("Expected end time 100, got %d", s.EndTime())
	}

	// The full range up to the close time is now queryable.
	if _, found, err := s.QuerySingle(100, 1); err != nil || found {
		t.Errorf("Expected absent at end time, got found=%v, err=%v", found, err)
	}
}

func TestDisposedStore(t *testing.T) {
	s := NewStore(0)

	if err := s.Insert(interval.New(0, 10, 1, nil)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	s.Dispose(true)

	if _, _, err := s.QuerySingle(5, 1); !backend.HasCode(err, backend.RetCDisposed) {
		t.Errorf("Expected Disposed error from query, got %v", err)
	}
	if err := s.Insert(interval.New(10, 20, 1, nil)); !backend.HasCode(err, backend.RetCDisposed) {
		t.Errorf("Expected Disposed error from insert, got %v", err)
	}
	if err := s.Close(100); !backend.HasCode(err, backend.RetCDisposed) {
		t.Errorf("Expected Disposed error from close, got %v", err)
	}
}
