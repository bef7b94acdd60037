package export

import (
	"context"
	"fmt"

	"Duka"
	pkgch "Duka/pkg/clickhouse"
)

// ClickHouseSink batch-inserts decoded records into ClickHouse: ticks land
// in a single "ticks" table, bars in a table named "bars_<granularity>" so
// minute/hour/day bars never collide on schema.
type ClickHouseSink struct {
	client   *pkgch.Client
	database string
}

// NewClickHouseSink wires a duka export pipeline to an already-connected
// ClickHouse client.
func NewClickHouseSink(client *pkgch.Client, database string) *ClickHouseSink {
	return &ClickHouseSink{client: client, database: database}
}

// EnsureSchema creates the tables this sink writes to if they don't exist.
// Safe to call repeatedly; typically invoked once at daemon startup.
func (s *ClickHouseSink) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.ticks (
			instrument String, time DateTime64(3), ask Float64, bid Float64,
			ask_volume Float32, bid_volume Float32
		) ENGINE = MergeTree ORDER BY (instrument, time)`, s.database),
	}
	for _, g := range []duka.Granularity{duka.Minute, duka.Hour, duka.Day} {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bars_%s (
			instrument String, time DateTime64(0), open Float64, high Float64,
			low Float64, close Float64, volume Float32
		) ENGINE = MergeTree ORDER BY (instrument, time)`, s.database, g))
	}
	return s.client.InitSchema(ctx, stmts)
}

func (s *ClickHouseSink) Write(ctx context.Context, instrument string, granularity duka.Granularity, records []duka.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export: begin tx: %w", err)
	}

	table := "ticks"
	query := fmt.Sprintf(`INSERT INTO %s.ticks (instrument, time, ask, bid, ask_volume, bid_volume) VALUES (?, ?, ?, ?, ?, ?)`, s.database)
	if granularity != duka.Ticks {
		table = "bars_" + string(granularity)
		query = fmt.Sprintf(`INSERT INTO %s.%s (instrument, time, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`, s.database, table)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("export: prepare %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var execErr error
		if rec.Kind == duka.KindTick {
			t := rec.Tick
			askF, _ := t.Ask.Float64()
			bidF, _ := t.Bid.Float64()
			_, execErr = stmt.ExecContext(ctx, instrument, t.Time, askF, bidF, t.AskVolume, t.BidVolume)
		} else {
			b := rec.Bar
			openF, _ := b.Open.Float64()
			highF, _ := b.High.Float64()
			lowF, _ := b.Low.Float64()
			closeF, _ := b.Close.Float64()
			_, execErr = stmt.ExecContext(ctx, instrument, b.Time, openF, highF, lowF, closeF, b.Volume)
		}
		if execErr != nil {
			tx.Rollback()
			return fmt.Errorf("export: insert into %s: %w", table, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export: commit %s: %w", table, err)
	}
	return nil
}

func (s *ClickHouseSink) Close() error { return nil }
