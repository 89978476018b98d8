package web

import (
	"net/http"

	"github.com/oklog/ulid/v2"

	"jobapply-gateway/internal/infra/logging"
)

// traceContext tags every request with a trace id and the caller identity so
// log lines and the dispatched job correlate. An inbound X-Trace-ID is
// trusted as-is; absent one a fresh id is minted. The id is echoed back on
// the response for client-side correlation.
func traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = ulid.Make().String()
		}

		ctx := logging.WithTraceID(r.Context(), traceID)
		if userID := r.Header.Get("X-User-ID"); userID != "" {
			ctx = logging.WithUserID(ctx, userID)
		}
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
