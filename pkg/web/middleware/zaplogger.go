package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"custody/pkg/log"
)

// ZapLogger puts a request scoped logger into the context and writes one line
// per request once the handler returns. Handlers add fields with log.AddFields.
func ZapLogger(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		logCtx := log.ToContext(r.Context(), log.Default())
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			log.AddFields(logCtx, "request_id", reqID)
		}

		next.ServeHTTP(ww, r.WithContext(logCtx))

		log.ExtractLogger(logCtx).Infow(
			r.Method+" "+r.RequestURI,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"ip", r.RemoteAddr,
			"latency", time.Since(start),
		)
	}
	return http.HandlerFunc(fn)
}
