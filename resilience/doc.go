// Package resilience holds the fault-tolerance primitives used around
// flowtorch's external calls:
//
//   - Retry and CircuitBreaker guard remote plugin storage
//   - Bulkhead caps concurrent formatter subprocesses
//   - KeyedRateLimiter throttles API clients
//
// Combined, a storage read looks like:
//
//	data, err := resilience.Retry(ctx, retryCfg, func() ([]byte, error) {
//	    var out []byte
//	    err := breaker.Execute(func() error {
//	        var err error
//	        out, err = fetch(ctx)
//	        return err
//	    })
//	    return out, err
//	})
package resilience
