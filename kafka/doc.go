// Package kafka holds the shared Kafka configuration, connection security
// (TLS and SASL), error classification and the lifecycle component used by
// the topic source and sink.
//
// Subpackages:
//
//   - kafka/consumer: group reader with explicit commits
//   - kafka/producer: batched, retried writes
//
// Configuration:
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: "demandflow"
package kafka
