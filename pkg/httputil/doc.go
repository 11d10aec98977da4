// Package httputil provides HTTP plumbing shared by the registry clients and
// the backend client.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff when it fails with a
// [RetryableError]. Clients wrap transient failures (network errors, 5xx
// responses) in RetryableError and return everything else as-is:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// Delays double up to [MaxDelay]. A RetryableError with After set (from a
// Retry-After header, see [RetryAfter]) waits that long instead.
//
// # Instrumentation
//
// [Transport] reports every request to the observability HTTP hooks.
package httputil
