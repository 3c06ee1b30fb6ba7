package models

type EventKind string

const (
	EventTradeExecuted     EventKind = "TRADE_EXECUTED"
	EventStrategyTriggered EventKind = "STRATEGY_TRIGGERED"
	EventRiskAlert         EventKind = "RISK_ALERT"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Priority Priority  `json:"priority"`
}

func TradeExecutedEvent(message string) Event {
	return Event{
		Kind:     EventTradeExecuted,
		Title:    "Trade Executed",
		Message:  message,
		Priority: PriorityHigh,
	}
}

func StrategyTriggeredEvent(strategyName, message string) Event {
	return Event{
		Kind:     EventStrategyTriggered,
		Title:    "Strategy Alert: " + strategyName,
		Message:  message,
		Priority: PriorityMedium,
	}
}

func RiskAlertEvent(message string) Event {
	return Event{
		Kind:     EventRiskAlert,
		Title:    "Risk Alert",
		Message:  message,
		Priority: PriorityHigh,
	}
}
