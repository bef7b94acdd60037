package export

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Duka"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]duka.Record
	failN   int // fail the first failN calls to Write, then succeed
	calls   int
}

func (s *fakeSink) Write(ctx context.Context, instrument string, granularity duka.Granularity, records []duka.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failN {
		return errors.New("sink temporarily unavailable")
	}
	cp := make([]duka.Record, len(records))
	copy(cp, records)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *fakeSink) Close() error { return nil }

func recordSeq(n int) func(func(duka.Record, error) bool) {
	return func(yield func(duka.Record, error) bool) {
		for i := 0; i < n; i++ {
			if !yield(duka.Record{Time: time.Unix(int64(i), 0)}, nil) {
				return
			}
		}
	}
}

func TestPipelineRunBatchesRecords(t *testing.T) {
	sink := &fakeSink{}
	p := NewPipeline(sink, PipelineConfig{BatchSize: 3, BufferSize: 10}, nil)

	written, err := p.Run(context.Background(), "EUR/USD", duka.Day, recordSeq(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 7 {
		t.Fatalf("written = %d, want 7", written)
	}
	if len(sink.batches) != 3 {
		t.Fatalf("expected 3 batches (3,3,1), got %d: %+v", len(sink.batches), sink.batches)
	}
	if len(sink.batches[0]) != 3 || len(sink.batches[2]) != 1 {
		t.Fatalf("unexpected batch sizes: %+v", sink.batches)
	}
}

func TestPipelineRunPropagatesStreamError(t *testing.T) {
	sink := &fakeSink{}
	p := NewPipeline(sink, PipelineConfig{BatchSize: 100, BufferSize: 10}, nil)

	wantErr := errors.New("fetch exploded")
	seq := func(yield func(duka.Record, error) bool) {
		yield(duka.Record{}, nil)
		yield(duka.Record{}, wantErr)
	}

	_, err := p.Run(context.Background(), "EUR/USD", duka.Day, seq)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected stream error to propagate, got %v", err)
	}
}

func TestPipelineRetriesFailedBatchThenSucceeds(t *testing.T) {
	sink := &fakeSink{failN: 2}
	p := NewPipeline(sink, PipelineConfig{BatchSize: 5, BufferSize: 10, MaxRetries: 3}, nil)

	written, err := p.Run(context.Background(), "EUR/USD", duka.Day, recordSeq(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 5 {
		t.Fatalf("written = %d, want 5", written)
	}
	if sink.calls != 3 {
		t.Fatalf("expected 2 failed attempts + 1 success = 3 calls, got %d", sink.calls)
	}
}

func TestPipelineGivesUpAfterMaxRetries(t *testing.T) {
	sink := &fakeSink{failN: 100}
	p := NewPipeline(sink, PipelineConfig{BatchSize: 5, BufferSize: 10, MaxRetries: 2}, nil)

	_, err := p.Run(context.Background(), "EUR/USD", duka.Day, recordSeq(5))
	if err == nil {
		t.Fatal("expected the pipeline to give up after exhausting retries")
	}
}
