package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/vocdoni/utt-core/trace"
)

// maxCorrelationIDSize bounds the caller provided correlation ids.
const maxCorrelationIDSize = 128

// traceRequest opens a root span for every request. The correlation id is
// taken from the CorrelationIDHeader request header, or generated if
// missing, and echoed back on the response.
func traceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationIDHeader)
		if correlationID == "" || len(correlationID) > maxCorrelationIDSize {
			correlationID = uuid.NewString()
		}
		span := trace.NewRootSpan(r.Method+" "+r.URL.Path, correlationID)
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			span.Name += " " + reqID
		}
		w.Header().Set(CorrelationIDHeader, correlationID)
		next.ServeHTTP(w, r.WithContext(trace.WithSpan(r.Context(), span)))
	})
}

// requestSpan returns the span of r, creating a root span if the request
// did not go through traceRequest.
func requestSpan(r *http.Request) trace.SpanContext {
	if span, ok := trace.FromContext(r.Context()); ok {
		return span
	}
	return trace.NewRootSpan(r.Method+" "+r.URL.Path, uuid.NewString())
}
