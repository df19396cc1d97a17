package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

func TestWriterFields(t *testing.T) {
	f := WriterFields(kafkago.WriterStats{
		Writes:   100,
		Messages: 500,
		Errors:   2,
		WriteTime: kafkago.DurationStats{
			Avg: 10 * time.Millisecond,
			Max: 50 * time.Millisecond,
		},
		Topic: "demands",
	})

	if f["messages"] != int64(500) || f["errors"] != int64(2) {
		t.Errorf("counts = %v/%v", f["messages"], f["errors"])
	}
	if f["avg_write_time_ms"] != 10.0 || f["max_write_time_ms"] != 50.0 {
		t.Errorf("write times = %v/%v", f["avg_write_time_ms"], f["max_write_time_ms"])
	}
	if f["topic"] != "demands" {
		t.Errorf("topic = %v", f["topic"])
	}
}

func TestReaderFields(t *testing.T) {
	f := ReaderFields(kafkago.ReaderStats{
		Messages:  7,
		Lag:       3,
		Offset:    42,
		Topic:     "analytics",
		Partition: "0",
	})
	if f["messages"] != int64(7) || f["lag"] != int64(3) || f["offset"] != int64(42) {
		t.Errorf("fields = %v", f)
	}
	if f["partition"] != "0" {
		t.Errorf("partition = %v", f["partition"])
	}
}
