package db

import (
	"context"

	"github.com/catalogizer/medialibrary/dberr"
	"golang.org/x/time/rate"
)

// maxRetries bounds the application-level retry loop for transient
// backend errors (BUSY, LOCKED, READONLY, IOERR, FULL), per §4.1/§7.
const maxRetries = 10

// retryLimiter throttles how fast the process as a whole retries
// transient errors, so a burst of contending writers backs off instead
// of retry-storming the embedded database. Grounded on
// tomtom215-cartographus's use of golang.org/x/time for backoff pacing.
var retryLimiter = rate.NewLimiter(rate.Limit(50), 5)

// withRetry runs fn, retrying up to maxRetries times when the error
// classifies as transient. Non-transient errors and the final
// transient failure are returned wrapped via dberr.Classify.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		classified := dberr.Classify(err)
		if !dberr.IsTransient(classified) {
			return zero, classified
		}
		lastErr = classified
		if err := retryLimiter.Wait(ctx); err != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}
