package service

import "github.com/bookbarn/api/internal/enum"

// allowedTransitions is the order state machine. Completed, delivered and
// cancelled are terminal; completed is where POS sales start and stay.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusConfirmed, enum.OrderStatusCancelled},
	enum.OrderStatusConfirmed: {enum.OrderStatusShipped},
	enum.OrderStatusShipped:   {enum.OrderStatusDelivered},
	enum.OrderStatusDelivered: {},
	enum.OrderStatusCancelled: {},
	enum.OrderStatusCompleted: {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(status string) bool {
	allowed, ok := allowedTransitions[status]
	return ok && len(allowed) == 0
}

func isValidStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}
