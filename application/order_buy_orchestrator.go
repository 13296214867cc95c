package application

import (
	"context"
	"fmt"

	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/request_params"
	"saga-orchestrator/domain/steps"
	"saga-orchestrator/utils/configs"
	"saga-orchestrator/utils/helpers"
)

type OrderBuyOrchestrator struct {
	*Orchestrator
}

func NewOrderBuyOrchestrator(config configs.SagaConfig, deps Dependencies) *OrderBuyOrchestrator {
	feeBuffer := config.FeeBuffer
	if feeBuffer <= 0 {
		feeBuffer = steps.DefaultFeeBuffer
	}
	return &OrderBuyOrchestrator{Orchestrator: NewOrchestrator(steps.NewOrderBuyDefinition(feeBuffer), config, deps)}
}

func (b *OrderBuyOrchestrator) Start(ctx context.Context, req *request_params.OrderBuyReq) (*entities.SagaState, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	description := fmt.Sprintf("%s buy of %v %s", req.OrderType, req.Quantity, req.Symbol)
	if req.OrderType == constants.OrderTypeLimit {
		description += " at " + helpers.FormatMoney(req.LimitPrice, req.Currency)
	}
	return b.StartSaga(ctx, description, func(state *entities.SagaState) {
		state.OrderBuy = &entities.OrderBuyDetails{
			UserID:     req.UserID,
			AccountID:  req.AccountID,
			Symbol:     req.Symbol,
			Quantity:   req.Quantity,
			OrderType:  req.OrderType,
			LimitPrice: req.LimitPrice,
			Currency:   req.Currency,
		}
	})
}
