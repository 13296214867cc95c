package context_http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"saga-orchestrator/utils/helpers"
)

const HeaderTraceID = "X-Trace-Id"

type traceKey struct{}

// CtxHTTP carries the trace of one management API call.
type CtxHTTP struct {
	context.Context
	TraceId string
	Route   string
	Started time.Time
}

// StartSpan picks the caller's trace id, falls back to the chi request id and finally to
// a fresh id.
func (c *CtxHTTP) StartSpan(r *http.Request) {
	c.Started = time.Now()
	c.Route = r.Method + " " + r.URL.Path
	c.TraceId = r.Header.Get(HeaderTraceID)
	if c.TraceId == "" {
		c.TraceId = middleware.GetReqID(r.Context())
	}
	if c.TraceId == "" {
		c.TraceId = helpers.GetUUId()
	}
	c.Context = context.WithValue(c.Context, traceKey{}, c.TraceId)
}

func (c *CtxHTTP) Duration() time.Duration {
	return time.Since(c.Started)
}

func NewSagaContextHTTP(ctx context.Context) *CtxHTTP {
	return &CtxHTTP{Context: ctx}
}

// TraceID returns the trace id stored by StartSpan, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
