package presenters

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"saga-orchestrator/application"
	"saga-orchestrator/domain/request_params"
	"saga-orchestrator/domain/value_objects"
	sagaerrors "saga-orchestrator/errors"
	utilserrors "saga-orchestrator/utils/errors"
)

// SagaHTTP is the management API: start sagas, inspect them and trigger the scanner.
type SagaHTTP struct {
	App *application.SagaApplication
}

func NewSagaHTTP(app *application.SagaApplication) *SagaHTTP {
	return &SagaHTTP{App: app}
}

func (h *SagaHTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(WrapperLoggingHTTP(h.App.Logger))

	r.Get("/health", h.Health)
	r.Get("/metrics", h.Metrics)
	r.Route("/api/v1/sagas", func(r chi.Router) {
		r.Post("/deposit", h.StartDeposit)
		r.Post("/withdrawal", h.StartWithdrawal)
		r.Post("/order-buy", h.StartOrderBuy)
		r.Post("/check-timeouts", h.CheckTimeouts)
		r.Get("/active", h.ListActive)
		r.Get("/{sagaId}", h.GetSaga)
	})
	return r
}

func (h *SagaHTTP) StartDeposit(w http.ResponseWriter, r *http.Request) {
	var req request_params.DepositReq
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	state, err := h.App.Deposit.Start(r.Context(), &req)
	if err != nil {
		h.App.Logger.Warn("start_deposit_failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, value_objects.NewSagaDTO(state))
}

func (h *SagaHTTP) StartWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req request_params.WithdrawalReq
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	state, err := h.App.Withdrawal.Start(r.Context(), &req)
	if err != nil {
		h.App.Logger.Warn("start_withdrawal_failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, value_objects.NewSagaDTO(state))
}

func (h *SagaHTTP) StartOrderBuy(w http.ResponseWriter, r *http.Request) {
	var req request_params.OrderBuyReq
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	state, err := h.App.OrderBuy.Start(r.Context(), &req)
	if err != nil {
		h.App.Logger.Warn("start_order_buy_failed", zap.String("user_id", req.UserID), zap.String("symbol", req.Symbol), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, value_objects.NewSagaDTO(state))
}

func (h *SagaHTTP) GetSaga(w http.ResponseWriter, r *http.Request) {
	state, err := h.App.GetSaga(r.Context(), chi.URLParam(r, "sagaId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value_objects.NewSagaDTO(state))
}

func (h *SagaHTTP) ListActive(w http.ResponseWriter, r *http.Request) {
	states, err := h.App.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value_objects.NewSagaListDTO(states))
}

// CheckTimeouts runs one scanner pass synchronously.
func (h *SagaHTTP) CheckTimeouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.App.JobCheckTimeouts(r.Context()))
}

func (h *SagaHTTP) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.App.Metrics.WriteJSON(w)
}

func (h *SagaHTTP) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(sagaerrors.ErrInvalidRequest, err.Error())
	}
	return nil
}

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func writeError(w http.ResponseWriter, err error) {
	status := sagaerrors.HTTPStatus(err)
	writeJSON(w, status, errorResponse{Error: utilserrors.PublicMessage(err, status), Status: status})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
