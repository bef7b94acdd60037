package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Duka"
	pkgkafka "Duka/pkg/kafka"
)

// kafkaRecord is the wire shape published for each decoded record: flat
// enough for a downstream consumer to deserialize without importing this
// module.
type kafkaRecord struct {
	Instrument  string    `json:"instrument"`
	Granularity string    `json:"granularity"`
	Time        time.Time `json:"time"`
	Ask         string    `json:"ask,omitempty"`
	Bid         string    `json:"bid,omitempty"`
	AskVolume   float32   `json:"ask_volume,omitempty"`
	BidVolume   float32   `json:"bid_volume,omitempty"`
	Open        string    `json:"open,omitempty"`
	High        string    `json:"high,omitempty"`
	Low         string    `json:"low,omitempty"`
	Close       string    `json:"close,omitempty"`
	Volume      float32   `json:"volume,omitempty"`
}

// KafkaSink publishes each decoded record as a JSON message keyed by
// instrument, so a consumer group can partition by symbol.
type KafkaSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSink(producer *pkgkafka.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Write(ctx context.Context, instrument string, granularity duka.Granularity, records []duka.Record) error {
	if len(records) == 0 {
		return nil
	}

	msgs := make([]pkgkafka.Message, 0, len(records))
	for _, rec := range records {
		out := kafkaRecord{Instrument: instrument, Granularity: string(granularity), Time: rec.Time}
		if rec.Kind == duka.KindTick {
			out.Ask, out.Bid = rec.Tick.Ask.String(), rec.Tick.Bid.String()
			out.AskVolume, out.BidVolume = rec.Tick.AskVolume, rec.Tick.BidVolume
		} else {
			out.Open, out.High, out.Low, out.Close = rec.Bar.Open.String(), rec.Bar.High.String(), rec.Bar.Low.String(), rec.Bar.Close.String()
			out.Volume = rec.Bar.Volume
		}
		payload, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("export: marshal record: %w", err)
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(instrument), Value: payload})
	}

	return s.producer.PublishBatch(ctx, s.topic, msgs)
}

func (s *KafkaSink) Close() error { return s.producer.Close() }
