// Package errors provides structured error handling for demandflow.
// Errors carry a machine-readable code, optional details and a retryable
// flag so adapters and pipeline stages report failures uniformly.
package errors
