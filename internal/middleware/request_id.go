package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
)

// maxInboundIDLength bounds client-supplied request and trace IDs.
const maxInboundIDLength = 128

type requestIDsKey struct{}

type requestIDs struct {
	request string
	trace   string
}

// RequestID tags each request with an ID, echoed in X-Request-ID. A
// well-formed inbound ID is kept for correlation, anything else is replaced
// by a UUID. A well-formed X-Trace-ID is propagated unchanged.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := requestIDs{request: r.Header.Get(RequestIDHeader)}
		if !wellFormedID(ids.request) {
			ids.request = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, ids.request)

		if trace := r.Header.Get(TraceIDHeader); wellFormedID(trace) {
			ids.trace = trace
			w.Header().Set(TraceIDHeader, trace)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDsKey{}, ids)))
	})
}

// wellFormedID accepts short printable ASCII without spaces.
func wellFormedID(id string) bool {
	if id == "" || len(id) > maxInboundIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	ids, _ := ctx.Value(requestIDsKey{}).(requestIDs)
	return ids.request
}

// GetTraceID returns the propagated trace ID, or "".
func GetTraceID(ctx context.Context) string {
	ids, _ := ctx.Value(requestIDsKey{}).(requestIDs)
	return ids.trace
}
