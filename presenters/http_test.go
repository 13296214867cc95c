package presenters_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"saga-orchestrator/application/test"
	"saga-orchestrator/domain/steps"
	"saga-orchestrator/domain/value_objects"
	"saga-orchestrator/presenters"
	"saga-orchestrator/utils/context_http"
)

const depositBody = `{"userId":"user-1","accountId":"acc-1","amount":120.5,"currency":"USD","paymentMethodId":"card-1"}`

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSagaHTTP_StartAndGet(t *testing.T) {
	th := test.NewTestSagaApplication(t)
	router := presenters.NewSagaHTTP(th.App).Router()

	rec := serve(t, router, http.MethodPost, "/api/v1/sagas/deposit", depositBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created value_objects.SagaDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.SagaID)
	assert.Equal(t, "DEPOSIT", created.SagaType)
	assert.Equal(t, steps.StepVerifyIdentity, created.CurrentStep)
	assert.InDelta(t, 120.5, created.Deposit.Amount, 1e-9)

	rec = serve(t, router, http.MethodGet, "/api/v1/sagas/"+created.SagaID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched value_objects.SagaDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.SagaID, fetched.SagaID)
	assert.NotEmpty(t, fetched.SagaEvents)

	rec = serve(t, router, http.MethodGet, "/api/v1/sagas/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list value_objects.SagaListDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestSagaHTTP_StartOtherFlows(t *testing.T) {
	tests := []struct {
		path string
		body string
		want string
	}{
		{path: "/api/v1/sagas/withdrawal", body: `{"userId":"u","accountId":"a","amount":10,"currency":"EUR","paymentMethodId":"iban"}`, want: "WITHDRAWAL"},
		{path: "/api/v1/sagas/order-buy", body: `{"userId":"u","accountId":"a","symbol":"AAPL","quantity":1,"currency":"USD"}`, want: "ORDER_BUY"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			th := test.NewTestSagaApplication(t)
			rec := serve(t, presenters.NewSagaHTTP(th.App).Router(), http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			var dto value_objects.SagaDTO
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
			assert.Equal(t, tt.want, dto.SagaType)
		})
	}
}

func TestSagaHTTP_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		err    string
	}{
		{name: "invalid-json", method: http.MethodPost, path: "/api/v1/sagas/deposit", body: `{"amount":`, status: http.StatusBadRequest, err: "invalid request"},
		{name: "missing-fields", method: http.MethodPost, path: "/api/v1/sagas/deposit", body: `{"amount":5}`, status: http.StatusBadRequest, err: "missing accountId"},
		{name: "non-positive-amount", method: http.MethodPost, path: "/api/v1/sagas/withdrawal", body: `{"userId":"u","accountId":"a","amount":0,"currency":"EUR","paymentMethodId":"iban"}`, status: http.StatusBadRequest, err: "amount must be positive"},
		{name: "unknown-saga", method: http.MethodGet, path: "/api/v1/sagas/DEP-missing", status: http.StatusNotFound, err: "saga not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := test.NewTestSagaApplication(t)
			rec := serve(t, presenters.NewSagaHTTP(th.App).Router(), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], tt.err)
			assert.EqualValues(t, tt.status, body["status"])
		})
	}
}

func TestSagaHTTP_CheckTimeoutsAndMetrics(t *testing.T) {
	th := test.NewTestSagaApplication(t)
	router := presenters.NewSagaHTTP(th.App).Router()
	require.Equal(t, http.StatusCreated, serve(t, router, http.MethodPost, "/api/v1/sagas/deposit", depositBody).Code)

	th.Clock.Advance(th.Config.Sagas.Deposit.TimeoutFor(steps.StepVerifyIdentity))
	rec := serve(t, router, http.MethodPost, "/api/v1/sagas/check-timeouts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scanned":1,"retried":1,"compensated":0,"errors":0}`, rec.Body.String())

	rec = serve(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.EqualValues(t, 1, snapshot["deposit.saga.started"]["count"])
	assert.EqualValues(t, 1, snapshot["deposit.timeout.retried"]["count"])

	rec = serve(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"UP"}`, rec.Body.String())
}

func TestWrapperLoggingHTTP(t *testing.T) {
	wrap := presenters.WrapperLoggingHTTP(zaptest.NewLogger(t))

	t.Run("echoes-trace-id", func(t *testing.T) {
		h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "trace-7", context_http.TraceID(r.Context()))
			w.WriteHeader(http.StatusNoContent)
		}))
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(context_http.HeaderTraceID, "trace-7")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "trace-7", rec.Header().Get(context_http.HeaderTraceID))
	})

	t.Run("recovers-panic", func(t *testing.T) {
		h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("nil map")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal Server Error","status":500}`, rec.Body.String())
	})
}
