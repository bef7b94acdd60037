package duka

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	applogger "Duka/pkg/logger"
)

var two = decimal.NewFromInt(2)

// unitResult is one batch member's outcome, collected in plan order so the
// orchestrator can preserve global chronological order regardless of which
// goroutine finishes first.
type unitResult struct {
	unit    PlanUnit
	records []Record
	err     error
}

// Run drives the batch orchestrator (C7): it consumes Plan lazily, fetches
// and decodes up to req.EffectiveBatchSize() units concurrently per batch,
// and yields records in plan order. A per-unit terminal error is routed by
// req.HaltOnError: true stops the sequence with that error, false logs and
// treats the unit as empty.
func Run(ctx context.Context, req Request, fetcher *Fetcher, now time.Time) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		units := Plan(req.Granularity, req.From, req.To, now)
		next, stop := iter.Pull(units)
		defer stop()

		batchSize := req.EffectiveBatchSize()
		var carry *PlanUnit

		for {
			batch := make([]PlanUnit, 0, batchSize)
			if carry != nil {
				batch = append(batch, *carry)
				carry = nil
			}
			for len(batch) < batchSize {
				u, ok := next()
				if !ok {
					break
				}
				batch = append(batch, u)
			}
			if len(batch) == 0 {
				return
			}

			isLast := len(batch) < batchSize
			if !isLast {
				if u, ok := next(); ok {
					carry = &u
				} else {
					isLast = true
				}
			}

			results := runBatch(ctx, req, fetcher, batch)

			for _, r := range results {
				if r.err != nil {
					uerr := &UnitError{Unit: r.unit, Side: req.Side, Err: r.err}
					if req.HaltOnError {
						yield(Record{}, uerr)
						return
					}
					if req.Logger != nil {
						req.Logger.Error("unit failed, treating as empty",
							applogger.String("granularity", string(r.unit.Granularity)),
							applogger.String("key", formatUnitKey(r.unit)),
							applogger.String("side", string(req.Side)),
							applogger.Error(uerr))
					}
					continue
				}
				for _, rec := range r.records {
					if !yield(rec, nil) {
						return
					}
				}
			}

			if ctx.Err() != nil {
				yield(Record{}, ctx.Err())
				return
			}

			if !isLast && req.BatchPauseMs > 0 {
				select {
				case <-ctx.Done():
					yield(Record{}, ctx.Err())
					return
				case <-time.After(time.Duration(req.BatchPauseMs) * time.Millisecond):
				}
			}
		}
	}
}

func runBatch(ctx context.Context, req Request, fetcher *Fetcher, batch []PlanUnit) []unitResult {
	results := make([]unitResult, len(batch))
	var wg sync.WaitGroup
	wg.Add(len(batch))
	for i, u := range batch {
		go func(i int, u PlanUnit) {
			defer wg.Done()
			unitCtx := ctx
			if req.UnitTimeout > 0 {
				var cancel context.CancelFunc
				unitCtx, cancel = context.WithTimeout(ctx, req.UnitTimeout)
				defer cancel()
			}
			recs, err := fetchUnit(unitCtx, req, fetcher, u)
			results[i] = unitResult{unit: u, records: recs, err: err}
		}(i, u)
	}
	wg.Wait()
	return results
}

// fetchUnit runs the fetch+decode pipeline for one plan unit: C2 builds the
// URL(s), C4 fetches, C5/C6 decode. Mid-price bar units issue two fetches
// and zip the results per spec §4.5.
func fetchUnit(ctx context.Context, req Request, fetcher *Fetcher, u PlanUnit) ([]Record, error) {
	if u.Granularity == Ticks {
		url := buildURL(req.effectiveBaseURL(), req.Instrument.RemotePrefix, u, "")
		data, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		ticks, err := DecodeTicks(data, u.Date, u.Hour, req.Instrument.PointValue)
		if err != nil {
			return nil, err
		}
		return tickRecords(ticks), nil
	}

	if req.Side != Mid {
		bars, err := fetchBars(ctx, req, fetcher, u, req.Side)
		if err != nil {
			return nil, err
		}
		return barRecords(bars), nil
	}

	return fetchMidBars(ctx, req, fetcher, u)
}

func fetchBars(ctx context.Context, req Request, fetcher *Fetcher, u PlanUnit, side Side) ([]Bar, error) {
	url := buildURL(req.effectiveBaseURL(), req.Instrument.RemotePrefix, u, side)
	data, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return DecodeBars(data, u.Granularity, u.Date, req.Instrument.PointValue)
}

func fetchMidBars(ctx context.Context, req Request, fetcher *Fetcher, u PlanUnit) ([]Record, error) {
	var bidBars, askBars []Bar
	var bidErr, askErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		bidBars, bidErr = fetchBars(ctx, req, fetcher, u, Bid)
	}()
	go func() {
		defer wg.Done()
		askBars, askErr = fetchBars(ctx, req, fetcher, u, Ask)
	}()
	wg.Wait()

	if bidErr != nil {
		return nil, bidErr
	}
	if askErr != nil {
		return nil, askErr
	}
	if len(bidBars) != len(askBars) {
		return nil, &DecodeError{Code: ErrMidMismatch, Message: "bid/ask record counts differ"}
	}

	out := make([]Bar, len(bidBars))
	for i := range bidBars {
		b, a := bidBars[i], askBars[i]
		if !b.Time.Equal(a.Time) {
			return nil, &DecodeError{Code: ErrMidMismatch, Message: "bid/ask timestamps differ"}
		}
		out[i] = Bar{
			Time:   b.Time,
			Open:   b.Open.Add(a.Open).Div(two),
			High:   b.High.Add(a.High).Div(two),
			Low:    b.Low.Add(a.Low).Div(two),
			Close:  b.Close.Add(a.Close).Div(two),
			Volume: b.Volume + a.Volume,
		}
	}
	return barRecords(out), nil
}

func tickRecords(ticks []Tick) []Record {
	out := make([]Record, len(ticks))
	for i, t := range ticks {
		out[i] = Record{Kind: KindTick, Time: t.Time, Tick: t}
	}
	return out
}

func barRecords(bars []Bar) []Record {
	out := make([]Record, len(bars))
	for i, b := range bars {
		out[i] = Record{Kind: KindBar, Time: b.Time, Bar: b}
	}
	return out
}
