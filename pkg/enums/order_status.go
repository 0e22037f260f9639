package enums

import "fmt"

// OrderStatus tracks a storefront order through payment.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusCanceled OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusFailed,
	OrderStatusCanceled,
}

func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the status is known.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// CanTransitionTo reports whether the payment webhook may move the order to next.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch o {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusFailed || next == OrderStatusCanceled
	case OrderStatusFailed:
		return next == OrderStatusPaid || next == OrderStatusCanceled
	default:
		return false
	}
}
