package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	domainerrors "github.com/listenupapp/saveable/internal/errors"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. Requests whose key is empty pass through unmetered.
func (krl *KeyedRateLimiter) Middleware(key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, retryAfter := krl.Reserve(k)
			if !ok {
				writeTooManyRequests(w, retryAfter.Seconds())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeTooManyRequests(w http.ResponseWriter, seconds float64) {
	if seconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(seconds))))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	//nolint:errcheck // Nothing useful to do if the client went away.
	_ = json.NewEncoder(w).Encode(domainerrors.ErrTooManyRequests)
}
