package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/grantscope/orgsite/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request a random ID (or reuses the one supplied by
// the client) and stores it in the request context for log enrichment.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}
