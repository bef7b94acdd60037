package duka

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// fakeTransport serves canned, already-LZMA-compressed bodies keyed by the
// exact request URL, so BuildURL's real dukascopy.com host never needs a
// live network call.
type fakeTransport struct {
	bodies   map[string][]byte
	statuses map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{bodies: map[string][]byte{}, statuses: map[string]int{}}
}

func (f *fakeTransport) set(url string, body []byte) {
	f.bodies[url] = body
}

// setStatus forces a fixed status code (e.g. 500) for url regardless of
// whether a body was registered, for exercising retry/error paths.
func (f *fakeTransport) setStatus(url string, status int) {
	f.statuses[url] = status
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	if status, ok := f.statuses[url]; ok {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}
	body, ok := f.bodies[url]
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func testInstrument() Instrument {
	return Instrument{Name: "EUR/USD", RemotePrefix: "EURUSD", PointValue: decimal.NewFromInt(100000)}
}

func TestRunTicksInOrder(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	inst := testInstrument()

	transport := newFakeTransport()
	unit9 := PlanUnit{Granularity: Ticks, Date: day, Hour: 9}
	unit10 := PlanUnit{Granularity: Ticks, Date: day, Hour: 10}
	transport.set(BuildURL(inst.RemotePrefix, unit9, ""), lzmaCompress(t, encodeTickRecord(0, 110000, 109990, 1, 1)))
	transport.set(BuildURL(inst.RemotePrefix, unit10, ""), lzmaCompress(t, encodeTickRecord(0, 110100, 110090, 1, 1)))

	req := Request{
		Instrument: inst, Granularity: Ticks,
		From: day.Add(9 * time.Hour), To: day.Add(11 * time.Hour),
		Side: Bid, BatchSize: 10, MaxRetries: 0, RetryDelay: noDelay,
		UnitTimeout: 5 * time.Second, HaltOnError: true,
		HTTPClient: &http.Client{Transport: transport},
	}

	fetcher := NewFetcher(req)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	var got []time.Time
	for rec, err := range Run(context.Background(), req, fetcher, now) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, rec.Time)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 ticks, got %d: %+v", len(got), got)
	}
	if !got[0].Before(got[1]) {
		t.Fatalf("expected chronological order, got %+v", got)
	}
}

func TestRunAllNotFoundYieldsNoRecords(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	inst := testInstrument()

	transport := newFakeTransport() // nothing registered -> every fetch 404s -> treated as empty
	req := Request{
		Instrument: inst, Granularity: Day,
		From: day, To: day.AddDate(0, 0, 2),
		Side: Bid, BatchSize: 10, MaxRetries: 0, RetryDelay: noDelay,
		UnitTimeout: 5 * time.Second, HaltOnError: true,
		HTTPClient: &http.Client{Transport: transport},
	}

	fetcher := NewFetcher(req)
	// now is a year past the request range so Day stays Day (the
	// current-year fallback would otherwise cascade it to Hour).
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var count int
	for _, err := range Run(context.Background(), req, fetcher, now) {
		count++
		if err != nil {
			t.Fatalf("expected no per-unit error on a plain 404 (treated as empty), got %v", err)
		}
	}
	if count != 0 {
		t.Fatalf("expected zero records from an all-404 range, got %d", count)
	}
}

// TestRunSkipsUnitOnRetryExhaustedWhenHaltOnErrorFalse exercises the
// log-and-continue branch at orchestrator.go:74-81: a unit that exhausts
// its retries against a real 500 (not a 404-as-empty) with
// FailAfterRetries true must be swallowed as a per-unit error and dropped,
// not propagated, while the rest of the range still yields. Day units file
// under year start, so the two units here must fall in different years to
// get distinct URLs (BuildURL for Day only encodes the year).
func TestRunSkipsUnitOnRetryExhaustedWhenHaltOnErrorFalse(t *testing.T) {
	yearA := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	yearB := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inst := testInstrument()
	unitA := PlanUnit{Granularity: Day, Date: yearA}
	unitB := PlanUnit{Granularity: Day, Date: yearB}

	transport := newFakeTransport()
	transport.setStatus(BuildURL(inst.RemotePrefix, unitA, Bid), http.StatusInternalServerError)
	transport.set(BuildURL(inst.RemotePrefix, unitB, Bid), lzmaCompress(t, encodeBarRecord(0, 100000, 100200, 99800, 100100, 10)))

	req := Request{
		Instrument: inst, Granularity: Day,
		From: yearA, To: yearB.AddDate(1, 0, 0),
		Side: Bid, BatchSize: 10, MaxRetries: 2, RetryDelay: noDelay,
		FailAfterRetries: true,
		UnitTimeout:      5 * time.Second, HaltOnError: false,
		HTTPClient: &http.Client{Transport: transport},
	}

	fetcher := NewFetcher(req)
	// now is a year past both units so neither is the current year (the
	// fallback would otherwise cascade yearB to Hour granularity).
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var bars []Bar
	for rec, err := range Run(context.Background(), req, fetcher, now) {
		if err != nil {
			t.Fatalf("expected the failed unit to be swallowed, not propagated, got %v", err)
		}
		bars = append(bars, rec.Bar)
	}

	if len(bars) != 1 {
		t.Fatalf("expected only yearB's bar to survive the failed yearA unit, got %d: %+v", len(bars), bars)
	}
	if !bars[0].Time.Equal(yearB) {
		t.Fatalf("surviving bar time = %v, want %v", bars[0].Time, yearB)
	}
}

func TestRunMidPriceAveragesBidAsk(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	inst := testInstrument()
	unit := PlanUnit{Granularity: Day, Date: day}

	transport := newFakeTransport()
	transport.set(BuildURL(inst.RemotePrefix, unit, Bid), lzmaCompress(t, encodeBarRecord(0, 100000, 100200, 99800, 100100, 10)))
	transport.set(BuildURL(inst.RemotePrefix, unit, Ask), lzmaCompress(t, encodeBarRecord(0, 100020, 100220, 99820, 100120, 20)))

	req := Request{
		Instrument: inst, Granularity: Day,
		From: day, To: day.AddDate(0, 0, 1),
		Side: Mid, BatchSize: 10, MaxRetries: 0, RetryDelay: noDelay,
		UnitTimeout: 5 * time.Second, HaltOnError: true,
		HTTPClient: &http.Client{Transport: transport},
	}

	fetcher := NewFetcher(req)
	// now is a year past the request range so Day stays Day (the
	// current-year fallback would otherwise cascade it to Hour).
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var bars []Bar
	for rec, err := range Run(context.Background(), req, fetcher, now) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		bars = append(bars, rec.Bar)
	}

	if len(bars) != 1 {
		t.Fatalf("expected 1 mid bar, got %d", len(bars))
	}
	b := bars[0]
	if !b.Open.Equal(decimal.NewFromFloat(1.00010)) {
		t.Fatalf("open = %v, want 1.00010", b.Open)
	}
	if b.Volume != 30 {
		t.Fatalf("volume = %v, want 30 (sum of bid+ask)", b.Volume)
	}
}

func TestRunMidPriceMismatchErrors(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	inst := testInstrument()
	unit := PlanUnit{Granularity: Day, Date: day}

	transport := newFakeTransport()
	// two bid bars, one ask bar: count mismatch.
	bidData := append(encodeBarRecord(0, 100000, 100200, 99800, 100100, 10), encodeBarRecord(3600, 100010, 100210, 99810, 100110, 5)...)
	transport.set(BuildURL(inst.RemotePrefix, unit, Bid), lzmaCompress(t, bidData))
	transport.set(BuildURL(inst.RemotePrefix, unit, Ask), lzmaCompress(t, encodeBarRecord(0, 100020, 100220, 99820, 100120, 20)))

	req := Request{
		Instrument: inst, Granularity: Day,
		From: day, To: day.AddDate(0, 0, 1),
		Side: Mid, BatchSize: 10, MaxRetries: 0, RetryDelay: noDelay,
		UnitTimeout: 5 * time.Second, HaltOnError: true,
		HTTPClient: &http.Client{Transport: transport},
	}

	fetcher := NewFetcher(req)
	// now is a year past the request range so Day stays Day (the
	// current-year fallback would otherwise cascade it to Hour).
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var sawErr error
	for _, err := range Run(context.Background(), req, fetcher, now) {
		if err != nil {
			sawErr = err
		}
	}
	if sawErr == nil {
		t.Fatal("expected a mid-mismatch error to surface")
	}
}
