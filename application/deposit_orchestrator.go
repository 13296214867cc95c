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

type DepositOrchestrator struct {
	*Orchestrator
}

func NewDepositOrchestrator(config configs.SagaConfig, deps Dependencies) *DepositOrchestrator {
	return &DepositOrchestrator{Orchestrator: NewOrchestrator(steps.Deposit, config, deps)}
}

// Start validates a deposit request and launches its saga.
func (d *DepositOrchestrator) Start(ctx context.Context, req *request_params.DepositReq) (*entities.SagaState, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	description := fmt.Sprintf("deposit of %s into account %s", helpers.FormatMoney(req.Amount, req.Currency), req.AccountID)
	return d.StartSaga(ctx, description, func(state *entities.SagaState) {
		state.Deposit = &entities.DepositDetails{
			UserID:          req.UserID,
			AccountID:       req.AccountID,
			Amount:          req.Amount,
			Currency:        req.Currency,
			PaymentMethodID: req.PaymentMethodID,
		}
	})
}
