package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	contextClient    contextKey = "Client"
	httpHeaderClient            = "Client"
)

// AddLogging attaches a request scoped logger to the request context and
// logs every request once it has been served.
func AddLogging(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		logger := log.Ctx(r.Context()).With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		ctx := r.Context()
		if header, ok := r.Header[httpHeaderClient]; ok && len(header) == 1 {
			logger = logger.With().Str("client", header[0]).Logger()
			ctx = context.WithValue(ctx, contextClient, header[0])
		}
		ctx = logger.WithContext(ctx)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logger.Debug().Msgf("r=%v served in %d µs", r.RemoteAddr, time.Since(start).Microseconds())
	}
	return http.HandlerFunc(fn)
}

// CtxGetClient returns the value of the Client header, if the request had
// one.
func CtxGetClient(ctx context.Context) string {
	if client, ok := ctx.Value(contextClient).(string); ok {
		return client
	}
	return ""
}
