package duka

import (
	"testing"
	"time"
)

func TestBuildURL(t *testing.T) {
	date := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		unit PlanUnit
		side Side
		want string
	}{
		{
			name: "ticks",
			unit: PlanUnit{Granularity: Ticks, Date: date, Hour: 7},
			want: "https://datafeed.dukascopy.com/datafeed/EURUSD/2024/02/05/07h_ticks.bi5",
		},
		{
			name: "minute bid",
			unit: PlanUnit{Granularity: Minute, Date: date},
			side: Bid,
			want: "https://datafeed.dukascopy.com/datafeed/EURUSD/2024/02/05/BID_candles_min_1.bi5",
		},
		{
			name: "hour ask",
			unit: PlanUnit{Granularity: Hour, Date: date},
			side: Ask,
			want: "https://datafeed.dukascopy.com/datafeed/EURUSD/2024/02/ASK_candles_hour_1.bi5",
		},
		{
			name: "day",
			unit: PlanUnit{Granularity: Day, Date: date},
			side: Bid,
			want: "https://datafeed.dukascopy.com/datafeed/EURUSD/2024/BID_candles_day_1.bi5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildURL("EURUSD", tt.unit, tt.side); got != tt.want {
				t.Fatalf("BuildURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildURLPanicsOnUnknownGranularity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown granularity")
		}
	}()
	BuildURL("EURUSD", PlanUnit{Granularity: "weekly"}, Bid)
}

func TestCacheKey(t *testing.T) {
	url := "https://datafeed.dukascopy.com/datafeed/EURUSD/2024/02/05/07h_ticks.bi5"
	want := "EURUSD-2024-02-05-07h_ticks.bi5"
	if got := CacheKey(url); got != want {
		t.Fatalf("CacheKey = %q, want %q", got, want)
	}
}
