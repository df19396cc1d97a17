package kafka

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/kbukum/demandflow/errors"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		msg        string
		connection bool
		retryable  bool
	}{
		{"something else", false, false},
		{"dial tcp 127.0.0.1:9092: connect: connection refused", true, true},
		{"Connection Reset by peer", true, true},
		{"read: i/o timeout", true, true},
		{"[5] Leader Not Available", true, true},
		{"[7] Request Timed Out", false, true},
		{"not enough replicas", false, true},
		{"[10] Message Size Too Large: message too large", false, false},
		{"[3] Unknown Topic Or Partition: unknown topic or partition", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := errors.New(tt.msg)
			if got := IsConnectionError(err); got != tt.connection {
				t.Errorf("IsConnectionError = %v, want %v", got, tt.connection)
			}
			if got := IsRetryableError(err); got != tt.retryable {
				t.Errorf("IsRetryableError = %v, want %v", got, tt.retryable)
			}
		})
	}
	if IsConnectionError(nil) || IsRetryableError(nil) {
		t.Error("nil error classified as failure")
	}
}

func TestFromKafka(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"connection", errors.New("dial tcp: connection refused"), apperrors.ErrCodeConnectionFailed, true},
		{"transient", errors.New("request timed out"), apperrors.ErrCodeExternalService, true},
		{"fatal", errors.New("message too large"), apperrors.ErrCodeExternalService, false},
		{"unknown", context.DeadlineExceeded, apperrors.ErrCodeExternalService, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromKafka(tt.err, "demands")
			if got.Code != tt.code || got.Retryable != tt.retryable {
				t.Errorf("FromKafka() = %s retryable=%v, want %s retryable=%v", got.Code, got.Retryable, tt.code, tt.retryable)
			}
			if got.Details["topic"] != "demands" {
				t.Errorf("topic detail = %v", got.Details["topic"])
			}
		})
	}

	if FromKafka(nil, "x") != nil {
		t.Error("FromKafka(nil) should be nil")
	}
	sinkErr := apperrors.SinkFailed(errors.New("closed"))
	if FromKafka(sinkErr, "x") != sinkErr {
		t.Error("an AppError passes through unchanged")
	}
}
