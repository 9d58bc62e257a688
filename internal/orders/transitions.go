package orders

import (
	"github.com/isokofarm/isoko-backend/pkg/enums"
)

// transition describes one edge of the order lifecycle graph.
type transition struct {
	from  []enums.OrderStatus
	to    enums.OrderStatus
	roles []enums.UserRole
}

// transitionTable is the single source of truth for which action moves an
// order between which statuses, and who may take it. Cancellation stays a
// buyer action on pending orders only; farmers use reject, which is also
// allowed after approval as long as nothing shipped.
var transitionTable = map[enums.OrderAction]transition{
	enums.OrderActionApprove: {
		from:  []enums.OrderStatus{enums.OrderStatusPending},
		to:    enums.OrderStatusApproved,
		roles: []enums.UserRole{enums.UserRoleFarmer, enums.UserRoleAdmin},
	},
	enums.OrderActionReject: {
		from:  []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusApproved},
		to:    enums.OrderStatusCancelled,
		roles: []enums.UserRole{enums.UserRoleFarmer, enums.UserRoleAdmin},
	},
	enums.OrderActionCancel: {
		from:  []enums.OrderStatus{enums.OrderStatusPending},
		to:    enums.OrderStatusCancelled,
		roles: []enums.UserRole{enums.UserRoleBuyer},
	},
	enums.OrderActionShip: {
		from:  []enums.OrderStatus{enums.OrderStatusApproved},
		to:    enums.OrderStatusShipped,
		roles: []enums.UserRole{enums.UserRoleFarmer, enums.UserRoleAdmin},
	},
	enums.OrderActionDeliver: {
		from:  []enums.OrderStatus{enums.OrderStatusShipped},
		to:    enums.OrderStatusDelivered,
		roles: []enums.UserRole{enums.UserRoleFarmer, enums.UserRoleAdmin},
	},
}

// NextStatus resolves the target status for an action taken from the current
// status. The second return is false when the action is not allowed from the
// current status.
func NextStatus(current enums.OrderStatus, action enums.OrderAction) (enums.OrderStatus, bool) {
	t, ok := transitionTable[action]
	if !ok {
		return "", false
	}
	for _, from := range t.from {
		if from == current {
			return t.to, true
		}
	}
	return "", false
}

// RoleAllowed reports whether the actor role may request the action at all.
func RoleAllowed(action enums.OrderAction, role enums.UserRole) bool {
	t, ok := transitionTable[action]
	if !ok {
		return false
	}
	for _, allowed := range t.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// restoresStock reports whether the action returns line quantities to listings.
func restoresStock(action enums.OrderAction) bool {
	return action == enums.OrderActionReject || action == enums.OrderActionCancel
}
