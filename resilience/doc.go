// Package resilience retries transient failures with exponential backoff.
// The table and topic sinks wrap their batch writes in RetryFunc so a
// briefly unavailable database or broker does not fail a run.
//
//	cfg := policy.RetryConfig(log, "insert batch")
//	err := resilience.RetryFunc(ctx, cfg, func() error {
//	    return db.Create(&batch).Error
//	})
package resilience
