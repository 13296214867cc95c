package constants

import "strings"

// SourceSagaOrchestrator is stamped on every command this service emits.
const SourceSagaOrchestrator = "SAGA_ORCHESTRATOR"

const (
	ServiceUser        = "USER_SERVICE"
	ServiceAccount     = "ACCOUNT_SERVICE"
	ServicePayment     = "PAYMENT_SERVICE"
	ServiceTransaction = "TRANSACTION_SERVICE"
	ServiceOrder       = "ORDER_SERVICE"
	ServiceMarketData  = "MARKET_DATA_SERVICE"
	ServiceTrading     = "TRADING_SERVICE"
)

const (
	FlowDeposit    = "deposit"
	FlowWithdrawal = "withdrawal"
	FlowOrderBuy   = "order-buy"
)

const (
	directionCommands = "commands"
	directionEvents   = "events"

	TopicDeadLetter = "saga.dead-letter"
)

var serviceTopicNames = map[string]string{
	ServiceUser:        "user",
	ServiceAccount:     "account",
	ServicePayment:     "payment",
	ServiceTransaction: "transaction",
	ServiceOrder:       "order",
	ServiceMarketData:  "market-data",
	ServiceTrading:     "trading",
}

// ServiceTopicName returns the topic segment owned by a target service.
func ServiceTopicName(service string) string {
	if name, ok := serviceTopicNames[service]; ok {
		return name
	}
	return strings.ToLower(strings.ReplaceAll(strings.TrimSuffix(service, "_SERVICE"), "_", "-"))
}

// CommandTopic is the orchestrator -> service topic: <service>.commands.<flow>
func CommandTopic(service, flow string) string {
	return ServiceTopicName(service) + "." + directionCommands + "." + flow
}

// EventTopic is the service -> orchestrator topic: <service>.events.<flow>
func EventTopic(service, flow string) string {
	return ServiceTopicName(service) + "." + directionEvents + "." + flow
}

// ParseEventTopic splits an event topic into its service segment and flow.
func ParseEventTopic(topic string) (service, flow string, ok bool) {
	parts := strings.SplitN(topic, ".", 3)
	if len(parts) != 3 || parts[1] != directionEvents || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

// EventTopics lists the event topics of a flow for the given target services.
func EventTopics(flow string, services []string) []string {
	seen := map[string]bool{}
	var topics []string
	for _, s := range services {
		topic := EventTopic(s, flow)
		if seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}
	return topics
}
