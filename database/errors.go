package database

import (
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kbukum/demandflow/errors"
)

// failure classifies a driver error by its message. Drivers differ in error
// types, but sqlite, postgres and mysql agree on these phrases.
type failure int

const (
	failurePermanent failure = iota
	failureTransient
	failureConnection
)

var failureMarkers = []struct {
	marker string
	kind   failure
}{
	{"connection refused", failureConnection},
	{"connection reset", failureConnection},
	{"connection closed", failureConnection},
	{"broken pipe", failureConnection},
	{"i/o timeout", failureConnection},
	{"no route to host", failureConnection},
	{"network is unreachable", failureConnection},
	{"bad connection", failureConnection},
	{"invalid connection", failureConnection},
	{"deadlock", failureTransient},
	{"lock timeout", failureTransient},
	{"database is locked", failureTransient},
	{"database table is locked", failureTransient},
	{"too many connections", failureTransient},
}

func classify(err error) failure {
	msg := strings.ToLower(err.Error())
	for _, m := range failureMarkers {
		if strings.Contains(msg, m.marker) {
			return m.kind
		}
	}
	return failurePermanent
}

// FromDatabase converts a gorm or driver error on resource to an AppError.
// Lost connections and lock contention come back retryable.
func FromDatabase(err error, resource string) *errors.AppError {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound(resource, "").WithCause(err)
	}

	var e *errors.AppError
	switch classify(err) {
	case failureConnection:
		e = errors.New(errors.ErrCodeConnectionFailed, "database is temporarily unavailable").WithCause(err)
		e.Retryable = true
	case failureTransient:
		e = errors.DatabaseError(err)
		e.Retryable = true
	default:
		e = errors.DatabaseError(err)
		e.Retryable = false
	}
	return e.WithDetail("resource", resource)
}
