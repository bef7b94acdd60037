package duka

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type stubCatalog map[string]Instrument

func (c stubCatalog) Lookup(name string) (Instrument, bool) {
	inst, ok := c[name]
	return inst, ok
}

func testCatalog() stubCatalog {
	return stubCatalog{
		"EUR/USD": {Name: "EUR/USD", RemotePrefix: "EURUSD", PipValue: decimal.NewFromFloat(0.00001), PointValue: decimal.NewFromInt(100000)},
	}
}

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestOptionsValidateUnknownInstrument(t *testing.T) {
	o := Options{Instrument: "XAU/EUR", Granularity: Day, From: fixedNow.AddDate(0, 0, -1), To: fixedNow}
	_, err := o.Validate(testCatalog(), fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != ErrUnknownInstrument {
		t.Fatalf("expected ErrUnknownInstrument, got %v", err)
	}
}

func TestOptionsValidateInvalidGranularity(t *testing.T) {
	o := Options{Instrument: "EUR/USD", Granularity: "weekly", From: fixedNow.AddDate(0, 0, -1), To: fixedNow}
	_, err := o.Validate(testCatalog(), fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != ErrInvalidGranularity {
		t.Fatalf("expected ErrInvalidGranularity, got %v", err)
	}
}

func TestOptionsValidateInvalidSide(t *testing.T) {
	o := Options{Instrument: "EUR/USD", Granularity: Day, Side: "last", From: fixedNow.AddDate(0, 0, -1), To: fixedNow}
	_, err := o.Validate(testCatalog(), fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != ErrInvalidPriceType {
		t.Fatalf("expected ErrInvalidPriceType, got %v", err)
	}
}

func TestOptionsValidateDefaultsSideToBid(t *testing.T) {
	o := Options{Instrument: "EUR/USD", Granularity: Day, From: fixedNow.AddDate(0, 0, -1), To: fixedNow}
	req, err := o.Validate(testCatalog(), fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Side != Bid {
		t.Fatalf("side = %v, want Bid", req.Side)
	}
	if req.BatchSize != 10 {
		t.Fatalf("batch size = %d, want default 10", req.BatchSize)
	}
	if req.UnitTimeout != 60*time.Second {
		t.Fatalf("unit timeout = %v, want 60s default", req.UnitTimeout)
	}
}

func TestOptionsValidateBothFromToAndDateRange(t *testing.T) {
	o := Options{
		Instrument: "EUR/USD", Granularity: Day,
		From: fixedNow.AddDate(0, 0, -1), To: fixedNow,
		DateRange: &DateRange{First: fixedNow.AddDate(0, 0, -2), Last: fixedNow},
	}
	_, err := o.Validate(testCatalog(), fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != ErrInvalidDateRange {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestOptionsValidateMissingDateRange(t *testing.T) {
	o := Options{Instrument: "EUR/USD", Granularity: Day}
	_, err := o.Validate(testCatalog(), fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != ErrMissingDateRange {
		t.Fatalf("expected ErrMissingDateRange, got %v", err)
	}
}

func TestOptionsValidateDateRangeLiftedToHalfOpen(t *testing.T) {
	first := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	last := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)
	o := Options{Instrument: "EUR/USD", Granularity: Day, DateRange: &DateRange{First: first, Last: last}}

	req, err := o.Validate(testCatalog(), fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantFrom := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC)
	if !req.From.Equal(wantFrom) {
		t.Fatalf("from = %v, want %v", req.From, wantFrom)
	}
	if !req.To.Equal(wantTo) {
		t.Fatalf("to = %v, want %v", req.To, wantTo)
	}
}

func TestOptionsValidateNegativeBatchSize(t *testing.T) {
	o := Options{Instrument: "EUR/USD", Granularity: Day, From: fixedNow.AddDate(0, 0, -1), To: fixedNow, BatchSize: -1}
	_, err := o.Validate(testCatalog(), fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != ErrInvalidPositiveInteger {
		t.Fatalf("expected ErrInvalidPositiveInteger, got %v", err)
	}
}

func TestOptionsValidateNegativeMaxRetries(t *testing.T) {
	o := Options{Instrument: "EUR/USD", Granularity: Day, From: fixedNow.AddDate(0, 0, -1), To: fixedNow, MaxRetries: -1}
	_, err := o.Validate(testCatalog(), fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != ErrInvalidNonNegativeInteger {
		t.Fatalf("expected ErrInvalidNonNegativeInteger, got %v", err)
	}
}

func TestRequestEffectiveBatchSize(t *testing.T) {
	tests := []struct {
		side Side
		size int
		want int
	}{
		{Bid, 10, 10},
		{Mid, 10, 5},
		{Mid, 1, 1},
		{Mid, 0, 1},
	}
	for _, tt := range tests {
		r := Request{Side: tt.side, BatchSize: tt.size}
		if got := r.EffectiveBatchSize(); got != tt.want {
			t.Fatalf("side=%v size=%d: EffectiveBatchSize = %d, want %d", tt.side, tt.size, got, tt.want)
		}
	}
}
