package presenters

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"saga-orchestrator/utils/context_http"
	"saga-orchestrator/utils/errors"
)

// WrapperLoggingHTTP traces every call, logs its outcome and turns a panic into a 500.
func WrapperLoggingHTTP(lg *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context_http.NewSagaContextHTTP(r.Context())
			ctx.StartSpan(r)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set(context_http.HeaderTraceID, ctx.TraceId)

			defer func() {
				if p := recover(); p != nil {
					err := errors.RecoveryError(p)
					lg.Error("request_panic", zap.String("trace_id", ctx.TraceId), zap.String("route", ctx.Route), zap.Error(err))
					if ww.Status() == 0 {
						writeError(ww, err)
					}
				}
				logs := lg.With(
					zap.String("trace_id", ctx.TraceId),
					zap.String("route", ctx.Route),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", ctx.Duration()),
				)
				if ww.Status() >= http.StatusInternalServerError {
					logs.Error("response-error")
					return
				}
				logs.Info("response-success")
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
