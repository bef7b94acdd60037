package duka

import (
	"errors"
	"testing"
	"time"
)

func seqFrom(records []Record, tail error) func(func(Record, error) bool) {
	return func(yield func(Record, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
		if tail != nil {
			yield(Record{}, tail)
		}
	}
}

func TestRangeFilterHalfOpen(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	records := []Record{
		{Time: from.Add(-time.Second)},
		{Time: from},
		{Time: from.Add(time.Hour)},
		{Time: to.Add(-time.Nanosecond)},
		{Time: to},
	}

	var got []time.Time
	for rec, err := range RangeFilter(seqFrom(records, nil), from, to) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, rec.Time)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 records within [from,to), got %d: %+v", len(got), got)
	}
	if !got[0].Equal(from) || !got[2].Equal(to.Add(-time.Nanosecond)) {
		t.Fatalf("unexpected filtered set: %+v", got)
	}
}

func TestRangeFilterPassesThroughUpstreamError(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	wantErr := errors.New("boom")

	records := []Record{{Time: from}}
	var sawErr error
	var count int
	for _, err := range RangeFilter(seqFrom(records, wantErr), from, to) {
		count++
		if err != nil {
			sawErr = err
		}
	}
	if count != 2 {
		t.Fatalf("expected the in-range record plus the terminal error, got %d yields", count)
	}
	if !errors.Is(sawErr, wantErr) {
		t.Fatalf("expected upstream error to pass through, got %v", sawErr)
	}
}
