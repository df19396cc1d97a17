// Package component defines the lifecycle interface shared by the
// infrastructure pieces a pipeline run depends on: storage, the database,
// the Kafka connection and the status server.
//
// Components are started in registration order, stopped in reverse order
// and polled for health by the status server.
package component
