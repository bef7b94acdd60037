package duka

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const tickRecordSize = 20

// DecodeTicks decodes a decompressed hourly tick blob into file-ordered
// tick records with absolute UTC timestamps. An empty blob decodes to an
// empty, non-error result; trailing bytes that don't form a full record are
// a format error.
func DecodeTicks(data []byte, day time.Time, hour int, pointValue decimal.Decimal) ([]Tick, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data)%tickRecordSize != 0 {
		decodeErrors.WithLabelValues("tick").Inc()
		return nil, &DecodeError{
			Code:    ErrInvalidTickFormat,
			Message: fmt.Sprintf("blob length %d is not a multiple of %d bytes", len(data), tickRecordSize),
		}
	}

	n := len(data) / tickRecordSize
	out := make([]Tick, n)
	hourStart := floorDay(day).Add(time.Duration(hour) * time.Hour)

	for i := 0; i < n; i++ {
		off := i * tickRecordSize
		deltaMs := binary.BigEndian.Uint32(data[off:])
		askRaw := int32(binary.BigEndian.Uint32(data[off+4:]))
		bidRaw := int32(binary.BigEndian.Uint32(data[off+8:]))
		askVol := math.Float32frombits(binary.BigEndian.Uint32(data[off+12:]))
		bidVol := math.Float32frombits(binary.BigEndian.Uint32(data[off+16:]))

		out[i] = Tick{
			Time:      hourStart.Add(time.Duration(deltaMs) * time.Millisecond),
			Ask:       decimal.NewFromInt32(askRaw).Div(pointValue),
			Bid:       decimal.NewFromInt32(bidRaw).Div(pointValue),
			AskVolume: askVol,
			BidVolume: bidVol,
		}
	}
	recordsDecoded.WithLabelValues("tick").Add(float64(n))
	return out, nil
}
