package duka

import (
	"iter"
	"time"
)

// RangeFilter applies the half-open [from,to) filter (C8) to a decoded
// record sequence. An upstream error is passed through unchanged and
// terminates the sequence; it is never filtered.
func RangeFilter(seq iter.Seq2[Record, error], from, to time.Time) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for rec, err := range seq {
			if err != nil {
				yield(Record{}, err)
				return
			}
			if rec.Time.Before(from) || !rec.Time.Before(to) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
