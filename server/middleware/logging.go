package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/flowtorch/logger"
)

// quietPaths are probed often and not logged.
var quietPaths = map[string]bool{
	"/health": true,
	"/info":   true,
}

// RequestLogger logs every request with method, path, status and
// duration. The level follows the status class.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := logger.DurationFields("http", time.Since(start))
			fields["method"] = r.Method
			fields["path"] = r.URL.Path
			fields[logger.FieldStatus] = sw.status
			fields["bytes"] = sw.written

			l := log.WithContext(r.Context())
			switch {
			case sw.status >= 500:
				l.Error("Request completed", fields)
			case sw.status >= 400:
				l.Warn("Request completed", fields)
			default:
				l.Info("Request completed", fields)
			}
		})
	}
}
