package kafka

import (
	"strings"

	"github.com/kbukum/demandflow/errors"
)

var (
	connectionPatterns = []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"broker not available",
		"leader not available",
		"connection closed",
		"dial tcp",
	}
	transientPatterns = []string{
		"temporary",
		"request timed out",
		"not enough replicas",
		"rebalance in progress",
		"not coordinator",
	}
	fatalPatterns = []string{
		"message too large",
		"invalid topic",
		"unknown topic",
		"authorization failed",
		"sasl authentication failed",
	}
)

func matches(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// IsConnectionError checks if a Kafka error is a connection-level error.
func IsConnectionError(err error) bool { return matches(err, connectionPatterns) }

// IsRetryableError determines if a Kafka error should trigger a retry.
func IsRetryableError(err error) bool {
	if matches(err, fatalPatterns) {
		return false
	}
	return IsConnectionError(err) || matches(err, transientPatterns)
}

// FromKafka converts a Kafka client error on topic to an AppError.
func FromKafka(err error, topic string) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var e *errors.AppError
	switch {
	case matches(err, fatalPatterns):
		e = errors.ExternalServiceError("kafka", err)
		e.Retryable = false
	case IsConnectionError(err):
		e = errors.ConnectionFailed("kafka").WithCause(err)
	case IsRetryableError(err):
		e = errors.ExternalServiceError("kafka", err)
	default:
		e = errors.ExternalServiceError("kafka", err)
		e.Retryable = false
	}
	return e.WithDetail("topic", topic)
}
