package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"f1-platform/pkg/logging"
)

// requestIDHeader is read from incoming requests and echoed on responses,
// so callers can correlate their own traces with the platform's logs.
const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an ID and threads it through
// the context for the structured logger.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(requestIDHeader, requestID)

		ctx := logging.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
