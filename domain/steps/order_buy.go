package steps

import (
	"github.com/pkg/errors"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
)

const (
	StepCreateOrder             = "CREATE_ORDER"
	StepVerifyTradingPermission = "VERIFY_TRADING_PERMISSION"
	StepValidateStock           = "VALIDATE_STOCK"
	StepCalculateRequiredFunds  = "CALCULATE_REQUIRED_FUNDS"
	StepReserveFunds            = "RESERVE_FUNDS"
	StepSubmitOrder             = "SUBMIT_ORDER"
	StepSettleFunds             = "SETTLE_FUNDS"
	StepUpdatePortfolio         = "UPDATE_PORTFOLIO"
	StepCompleteOrder           = "COMPLETE_ORDER"

	StepCompReversePortfolioUpdate = "COMP_REVERSE_PORTFOLIO_UPDATE"
	StepCompReverseSettlement      = "COMP_REVERSE_SETTLEMENT"
	StepCompCancelSubmittedOrder   = "COMP_CANCEL_SUBMITTED_ORDER"
	StepCompReleaseFunds           = "COMP_RELEASE_FUNDS"
	StepCompCancelOrder            = "COMP_CANCEL_ORDER"
)

// Keys written by the funds calculation into stepData.
const (
	DataRequiredFunds = StepCalculateRequiredFunds + "_requiredFunds"
	DataPriceUsed     = StepCalculateRequiredFunds + "_price"
)

// DefaultFeeBuffer is applied when no fee buffer is configured.
const DefaultFeeBuffer = 0.01

func orderBuyOf(s *entities.SagaState) (*entities.OrderBuyDetails, error) {
	if s.OrderBuy == nil {
		return nil, errors.Wrapf(sagaerrors.ErrInvalidPayload, "saga %s has no order details", s.SagaID)
	}
	return s.OrderBuy, nil
}

// RequiredFunds estimates price x quantity x (1 + feeBuffer). LIMIT orders use their limit
// price, MARKET orders the last observed market price.
func RequiredFunds(o *entities.OrderBuyDetails, feeBuffer float64) (funds, price float64, err error) {
	if o.Quantity <= 0 {
		return 0, 0, errors.Wrapf(sagaerrors.ErrInvalidPayload, "quantity %v", o.Quantity)
	}
	price = o.MarketPrice
	if o.OrderType == constants.OrderTypeLimit {
		price = o.LimitPrice
	}
	if price <= 0 {
		return 0, 0, errors.Wrapf(sagaerrors.ErrMissingPrice, "%s order on %s", o.OrderType, o.Symbol)
	}
	return price * o.Quantity * (1 + feeBuffer), price, nil
}

func executedAmount(o *entities.OrderBuyDetails) float64 {
	return o.ExecutionPrice * o.ExecutedQuantity
}

// NewOrderBuyDefinition builds the ORDER_BUY step table for a fee buffer.
func NewOrderBuyDefinition(feeBuffer float64) *Definition {
	return MustDefinition(entities.SagaTypeOrderBuy, []*Step{
		{
			Number:         1,
			Name:           StepCreateOrder,
			Description:    "Create order record",
			CommandType:    constants.CmdOrderCreate,
			ReplyEventType: constants.EvtOrderCreated,
			TargetService:  constants.ServiceOrder,
			HasSideEffect:  true,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.CreateOrderPayload{
					UserID:     o.UserID,
					AccountID:  o.AccountID,
					Symbol:     o.Symbol,
					Quantity:   o.Quantity,
					OrderType:  o.OrderType,
					LimitPrice: o.LimitPrice,
					Currency:   o.Currency,
				}, nil
			},
			Extract: func(s *entities.SagaState, p map[string]interface{}) error {
				out, err := entities.DecodeOrderCreated(p)
				if err != nil {
					return err
				}
				s.OrderBuy.OrderID = out.OrderID
				return nil
			},
		},
		{
			Number:         2,
			Name:           StepVerifyTradingPermission,
			Description:    "Verify trading permission",
			CommandType:    constants.CmdUserVerifyTradingPermission,
			ReplyEventType: constants.EvtUserTradingPermissionVerified,
			TargetService:  constants.ServiceUser,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.VerifyTradingPermissionPayload{UserID: o.UserID, AccountID: o.AccountID, Symbol: o.Symbol}, nil
			},
		},
		{
			Number:         3,
			Name:           StepValidateStock,
			Description:    "Validate symbol and fetch market price",
			CommandType:    constants.CmdMarketDataValidateSymbol,
			ReplyEventType: constants.EvtMarketDataSymbolValidated,
			TargetService:  constants.ServiceMarketData,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.ValidateSymbolPayload{Symbol: o.Symbol}, nil
			},
			Extract: func(s *entities.SagaState, p map[string]interface{}) error {
				out, err := entities.DecodeSymbolValidated(p)
				if err != nil {
					return err
				}
				if out.MarketPrice > 0 {
					s.OrderBuy.MarketPrice = out.MarketPrice
				}
				return nil
			},
		},
		{
			Number:      4,
			Name:        StepCalculateRequiredFunds,
			Description: "Calculate required funds",
			Local: func(s *entities.SagaState) error {
				o, err := orderBuyOf(s)
				if err != nil {
					return err
				}
				funds, price, err := RequiredFunds(o, feeBuffer)
				if err != nil {
					return err
				}
				o.RequiredFunds = funds
				if s.StepData == nil {
					s.StepData = map[string]interface{}{}
				}
				s.StepData[DataRequiredFunds] = funds
				s.StepData[DataPriceUsed] = price
				return nil
			},
		},
		{
			Number:         5,
			Name:           StepReserveFunds,
			Description:    "Reserve funds on the account",
			CommandType:    constants.CmdAccountReserveFunds,
			ReplyEventType: constants.EvtAccountFundsReserved,
			TargetService:  constants.ServiceAccount,
			HasSideEffect:  true,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.FundsPayload{AccountID: o.AccountID, OrderID: o.OrderID, Amount: o.RequiredFunds, Currency: o.Currency}, nil
			},
			Extract: func(s *entities.SagaState, p map[string]interface{}) error {
				out, err := entities.DecodeFundsReserved(p)
				if err != nil {
					return err
				}
				s.OrderBuy.ReservationID = out.ReservationID
				return nil
			},
		},
		{
			Number:         6,
			Name:           StepSubmitOrder,
			Description:    "Submit order to the execution venue",
			CommandType:    constants.CmdTradingSubmitOrder,
			ReplyEventType: constants.EvtTradingOrderExecuted,
			TargetService:  constants.ServiceTrading,
			HasSideEffect:  true,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.SubmitOrderPayload{
					OrderID:    o.OrderID,
					Symbol:     o.Symbol,
					Quantity:   o.Quantity,
					OrderType:  o.OrderType,
					LimitPrice: o.LimitPrice,
				}, nil
			},
			Extract: func(s *entities.SagaState, p map[string]interface{}) error {
				out, err := entities.DecodeOrderExecuted(p)
				if err != nil {
					return err
				}
				s.OrderBuy.VenueOrderID = out.VenueOrderID
				s.OrderBuy.ExecutionPrice = out.ExecutionPrice
				s.OrderBuy.ExecutedQuantity = out.ExecutedQuantity
				return nil
			},
		},
		{
			Number:         7,
			Name:           StepSettleFunds,
			Description:    "Settle executed amount",
			CommandType:    constants.CmdAccountSettleFunds,
			ReplyEventType: constants.EvtAccountFundsSettled,
			TargetService:  constants.ServiceAccount,
			HasSideEffect:  true,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.FundsPayload{
					AccountID:     o.AccountID,
					OrderID:       o.OrderID,
					ReservationID: o.ReservationID,
					Amount:        executedAmount(o),
					Currency:      o.Currency,
				}, nil
			},
		},
		{
			Number:         8,
			Name:           StepUpdatePortfolio,
			Description:    "Add shares to the portfolio",
			CommandType:    constants.CmdAccountUpdatePortfolio,
			ReplyEventType: constants.EvtAccountPortfolioUpdated,
			TargetService:  constants.ServiceAccount,
			HasSideEffect:  true,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.PortfolioPayload{
					AccountID: o.AccountID,
					OrderID:   o.OrderID,
					Symbol:    o.Symbol,
					Quantity:  o.ExecutedQuantity,
					Price:     o.ExecutionPrice,
				}, nil
			},
		},
		{
			Number:         9,
			Name:           StepCompleteOrder,
			Description:    "Mark order completed",
			CommandType:    constants.CmdOrderComplete,
			ReplyEventType: constants.EvtOrderCompleted,
			TargetService:  constants.ServiceOrder,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.CompleteOrderPayload{
					OrderID:          o.OrderID,
					VenueOrderID:     o.VenueOrderID,
					ExecutionPrice:   o.ExecutionPrice,
					ExecutedQuantity: o.ExecutedQuantity,
				}, nil
			},
		},
	}, []*Step{
		{
			Number:         100,
			Name:           StepCompReversePortfolioUpdate,
			Description:    "Remove shares from the portfolio",
			CommandType:    constants.CmdAccountReversePortfolioUpdate,
			ReplyEventType: constants.EvtAccountPortfolioUpdateReversed,
			TargetService:  constants.ServiceAccount,
			Undoes:         StepUpdatePortfolio,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.PortfolioPayload{
					AccountID: o.AccountID,
					OrderID:   o.OrderID,
					Symbol:    o.Symbol,
					Quantity:  o.ExecutedQuantity,
					Price:     o.ExecutionPrice,
				}, nil
			},
		},
		{
			Number:         101,
			Name:           StepCompReverseSettlement,
			Description:    "Reverse settled amount",
			CommandType:    constants.CmdAccountReverseSettlement,
			ReplyEventType: constants.EvtAccountSettlementReversed,
			TargetService:  constants.ServiceAccount,
			Undoes:         StepSettleFunds,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.FundsPayload{
					AccountID:     o.AccountID,
					OrderID:       o.OrderID,
					ReservationID: o.ReservationID,
					Amount:        executedAmount(o),
					Currency:      o.Currency,
				}, nil
			},
		},
		{
			Number:         102,
			Name:           StepCompCancelSubmittedOrder,
			Description:    "Cancel order at the execution venue",
			CommandType:    constants.CmdTradingCancelOrder,
			ReplyEventType: constants.EvtTradingOrderCancelled,
			TargetService:  constants.ServiceTrading,
			Undoes:         StepSubmitOrder,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.CancelSubmittedOrderPayload{OrderID: o.OrderID, VenueOrderID: o.VenueOrderID}, nil
			},
		},
		{
			Number:         103,
			Name:           StepCompReleaseFunds,
			Description:    "Release reserved funds",
			CommandType:    constants.CmdAccountReleaseFunds,
			ReplyEventType: constants.EvtAccountFundsReleased,
			TargetService:  constants.ServiceAccount,
			Undoes:         StepReserveFunds,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.FundsPayload{
					AccountID:     o.AccountID,
					OrderID:       o.OrderID,
					ReservationID: o.ReservationID,
					Amount:        o.RequiredFunds,
					Currency:      o.Currency,
				}, nil
			},
		},
		{
			Number:         104,
			Name:           StepCompCancelOrder,
			Description:    "Cancel order record",
			CommandType:    constants.CmdOrderCancel,
			ReplyEventType: constants.EvtOrderCancelled,
			TargetService:  constants.ServiceOrder,
			Undoes:         StepCreateOrder,
			Payload: func(s *entities.SagaState) (interface{}, error) {
				o, err := orderBuyOf(s)
				if err != nil {
					return nil, err
				}
				return entities.CancelOrderPayload{OrderID: o.OrderID, Reason: s.FailureReason}, nil
			},
		},
	})
}
