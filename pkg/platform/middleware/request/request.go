// Package request provides middleware that stamps every inbound request with
// a correlation ID and a request-scoped "now".
package request

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"zerotrust/pkg/requestcontext"
)

// HeaderRequestID is echoed on every response and honoured when a trusted
// front door already assigned one.
const HeaderRequestID = "X-Request-ID"

// maxInboundIDLen bounds caller-provided IDs before they reach logs.
const maxInboundIDLen = 128

// RequestID assigns a correlation ID, reusing the inbound header when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > maxInboundIDLen {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime captures the current time at the start of the request so all
// log lines and audit records of one request agree on "now".
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
