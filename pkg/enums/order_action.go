package enums

import "fmt"

// OrderAction identifies the lifecycle action an actor requested on an order.
type OrderAction string

const (
	OrderActionApprove OrderAction = "approve"
	OrderActionReject  OrderAction = "reject"
	OrderActionShip    OrderAction = "ship"
	OrderActionDeliver OrderAction = "deliver"
	OrderActionCancel  OrderAction = "cancel"
)

var validOrderActions = []OrderAction{
	OrderActionApprove,
	OrderActionReject,
	OrderActionShip,
	OrderActionDeliver,
	OrderActionCancel,
}

// String implements fmt.Stringer.
func (a OrderAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known OrderAction.
func (a OrderAction) IsValid() bool {
	for _, candidate := range validOrderActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOrderAction converts raw input into an OrderAction.
func ParseOrderAction(value string) (OrderAction, error) {
	for _, candidate := range validOrderActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order action %q", value)
}
