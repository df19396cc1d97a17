// Package repository holds the source and sink adapters that connect a
// pipeline run to its backends: CSV objects in storage, database tables and
// Kafka topics. NewSource and NewSink pick the adapter named by the
// configured kind.
package repository
