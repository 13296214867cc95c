package application

import (
	"context"
	"fmt"

	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/request_params"
	"saga-orchestrator/domain/steps"
	"saga-orchestrator/utils/configs"
	"saga-orchestrator/utils/helpers"
)

type WithdrawalOrchestrator struct {
	*Orchestrator
}

func NewWithdrawalOrchestrator(config configs.SagaConfig, deps Dependencies) *WithdrawalOrchestrator {
	return &WithdrawalOrchestrator{Orchestrator: NewOrchestrator(steps.Withdrawal, config, deps)}
}

func (w *WithdrawalOrchestrator) Start(ctx context.Context, req *request_params.WithdrawalReq) (*entities.SagaState, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	description := fmt.Sprintf("withdrawal of %s from account %s", helpers.FormatMoney(req.Amount, req.Currency), req.AccountID)
	return w.StartSaga(ctx, description, func(state *entities.SagaState) {
		state.Withdrawal = &entities.WithdrawalDetails{
			UserID:          req.UserID,
			AccountID:       req.AccountID,
			Amount:          req.Amount,
			Currency:        req.Currency,
			PaymentMethodID: req.PaymentMethodID,
			Description:     req.Description,
		}
	})
}
