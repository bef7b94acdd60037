package duka

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const barRecordSize = 24

// DecodeBars decodes a decompressed OHLCV blob into file-ordered bar
// records. The timebase depends on the fetch granularity: minute bars are
// offset in seconds from the start of key's day, hour bars from the start
// of key's month, day bars from the start of key's year.
func DecodeBars(data []byte, g Granularity, key time.Time, pointValue decimal.Decimal) ([]Bar, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data)%barRecordSize != 0 {
		decodeErrors.WithLabelValues("bar").Inc()
		return nil, &DecodeError{
			Code:    ErrInvalidBarFormat,
			Message: fmt.Sprintf("blob length %d is not a multiple of %d bytes", len(data), barRecordSize),
		}
	}

	var base time.Time
	switch g {
	case Minute:
		base = floorDay(key)
	case Hour:
		base = floorMonth(key)
	case Day:
		base = floorYear(key)
	default:
		decodeErrors.WithLabelValues("bar").Inc()
		return nil, &DecodeError{Code: ErrInvalidBarFormat, Message: fmt.Sprintf("unsupported bar granularity %q", g)}
	}

	n := len(data) / barRecordSize
	out := make([]Bar, n)

	for i := 0; i < n; i++ {
		off := i * barRecordSize
		deltaSec := int32(binary.BigEndian.Uint32(data[off:]))
		openRaw := int32(binary.BigEndian.Uint32(data[off+4:]))
		highRaw := int32(binary.BigEndian.Uint32(data[off+8:]))
		lowRaw := int32(binary.BigEndian.Uint32(data[off+12:]))
		closeRaw := int32(binary.BigEndian.Uint32(data[off+16:]))
		volume := math.Float32frombits(binary.BigEndian.Uint32(data[off+20:]))

		open := decimal.NewFromInt32(openRaw).Div(pointValue)
		high := decimal.NewFromInt32(highRaw).Div(pointValue)
		low := decimal.NewFromInt32(lowRaw).Div(pointValue)
		closePrice := decimal.NewFromInt32(closeRaw).Div(pointValue)

		// high/low are widened where the upstream file disagrees, so every
		// decoded bar has high >= max(open, close, low) and
		// low <= min(open, close, high).
		high = decimal.Max(high, open, closePrice, low)
		low = decimal.Min(low, open, closePrice)

		out[i] = Bar{
			Time:   base.Add(time.Duration(deltaSec) * time.Second),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		}
	}
	recordsDecoded.WithLabelValues("bar").Add(float64(n))
	return out, nil
}
