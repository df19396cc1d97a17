package kafka

import (
	kafkago "github.com/segmentio/kafka-go"
)

// WriterFields flattens writer statistics into log fields.
func WriterFields(stats kafkago.WriterStats) map[string]interface{} {
	return map[string]interface{}{
		"topic":             stats.Topic,
		"writes":            stats.Writes,
		"messages":          stats.Messages,
		"bytes":             stats.Bytes,
		"errors":            stats.Errors,
		"retries":           stats.Retries,
		"avg_write_time_ms": float64(stats.WriteTime.Avg) / 1e6,
		"max_write_time_ms": float64(stats.WriteTime.Max) / 1e6,
	}
}

// ReaderFields flattens reader statistics into log fields.
func ReaderFields(stats kafkago.ReaderStats) map[string]interface{} {
	return map[string]interface{}{
		"topic":      stats.Topic,
		"partition":  stats.Partition,
		"dials":      stats.Dials,
		"fetches":    stats.Fetches,
		"messages":   stats.Messages,
		"bytes":      stats.Bytes,
		"errors":     stats.Errors,
		"rebalances": stats.Rebalances,
		"offset":     stats.Offset,
		"lag":        stats.Lag,
	}
}
