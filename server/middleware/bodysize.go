package middleware

import (
	"net/http"

	"github.com/kbukum/flowtorch/errors"
)

// BodySizeLimit caps request bodies at maxBytes. Reads past the limit fail
// with *http.MaxBytesError; handlers report it as PAYLOAD_TOO_LARGE.
func BodySizeLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, errors.PayloadTooLarge(maxBytes))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
