package entities

import "saga-orchestrator/domain/constants"

type SagaType string

const (
	SagaTypeDeposit    SagaType = "DEPOSIT"
	SagaTypeWithdrawal SagaType = "WITHDRAWAL"
	SagaTypeOrderBuy   SagaType = "ORDER_BUY"
)

var sagaTypeFlows = map[SagaType]string{
	SagaTypeDeposit:    constants.FlowDeposit,
	SagaTypeWithdrawal: constants.FlowWithdrawal,
	SagaTypeOrderBuy:   constants.FlowOrderBuy,
}

// Flow is the topic suffix used by this saga type.
func (t SagaType) Flow() string {
	return sagaTypeFlows[t]
}

// IDPrefix is prepended to generated saga ids.
func (t SagaType) IDPrefix() string {
	switch t {
	case SagaTypeDeposit:
		return "DEP"
	case SagaTypeWithdrawal:
		return "WDR"
	case SagaTypeOrderBuy:
		return "OBY"
	}
	return "SAG"
}

// SagaTypeForFlow resolves the saga type owning a topic flow.
func SagaTypeForFlow(flow string) (SagaType, bool) {
	for t, f := range sagaTypeFlows {
		if f == flow {
			return t, true
		}
	}
	return "", false
}
