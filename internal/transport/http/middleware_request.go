package httptransport

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"caregate/internal/clienttype"
	"caregate/pkg/requestcontext"
)

// RequestMetadata stamps every request with an ID, a request-scoped time and
// the detected client type. Everything downstream — handlers, services,
// audit — reads these from the context instead of re-deriving them.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := r.Header.Get("x-request-id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		ctx = requestcontext.WithClientType(ctx, string(clienttype.Detect(r)))

		w.Header().Set("x-request-id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientTypeFrom reads the detected client type back out of the context.
// Falls back to detection for handlers mounted without RequestMetadata.
func clientTypeFrom(r *http.Request) clienttype.ClientType {
	if v := requestcontext.ClientType(r.Context()); v != "" {
		return clienttype.ClientType(v)
	}
	return clienttype.Detect(r)
}
