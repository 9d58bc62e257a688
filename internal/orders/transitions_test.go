package orders

import (
	"testing"

	"github.com/isokofarm/isoko-backend/pkg/enums"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		name    string
		current enums.OrderStatus
		action  enums.OrderAction
		want    enums.OrderStatus
		allowed bool
	}{
		{"approve pending", enums.OrderStatusPending, enums.OrderActionApprove, enums.OrderStatusApproved, true},
		{"approve approved", enums.OrderStatusApproved, enums.OrderActionApprove, "", false},
		{"reject pending", enums.OrderStatusPending, enums.OrderActionReject, enums.OrderStatusCancelled, true},
		{"reject approved", enums.OrderStatusApproved, enums.OrderActionReject, enums.OrderStatusCancelled, true},
		{"reject shipped", enums.OrderStatusShipped, enums.OrderActionReject, "", false},
		{"cancel pending", enums.OrderStatusPending, enums.OrderActionCancel, enums.OrderStatusCancelled, true},
		{"cancel approved", enums.OrderStatusApproved, enums.OrderActionCancel, "", false},
		{"ship approved", enums.OrderStatusApproved, enums.OrderActionShip, enums.OrderStatusShipped, true},
		{"ship pending", enums.OrderStatusPending, enums.OrderActionShip, "", false},
		{"deliver shipped", enums.OrderStatusShipped, enums.OrderActionDeliver, enums.OrderStatusDelivered, true},
		{"deliver delivered", enums.OrderStatusDelivered, enums.OrderActionDeliver, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NextStatus(tc.current, tc.action)
			if ok != tc.allowed {
				t.Fatalf("expected allowed=%v, got %v", tc.allowed, ok)
			}
			if ok && got != tc.want {
				t.Fatalf("expected target %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRoleAllowed(t *testing.T) {
	if !RoleAllowed(enums.OrderActionApprove, enums.UserRoleFarmer) {
		t.Fatal("farmer should approve")
	}
	if !RoleAllowed(enums.OrderActionApprove, enums.UserRoleAdmin) {
		t.Fatal("admin should approve")
	}
	if RoleAllowed(enums.OrderActionApprove, enums.UserRoleBuyer) {
		t.Fatal("buyer must not approve")
	}
	if !RoleAllowed(enums.OrderActionCancel, enums.UserRoleBuyer) {
		t.Fatal("buyer should cancel")
	}
	if RoleAllowed(enums.OrderActionCancel, enums.UserRoleFarmer) {
		t.Fatal("farmer must not cancel, reject is the farmer path")
	}
}

func TestRestoresStock(t *testing.T) {
	if !restoresStock(enums.OrderActionReject) || !restoresStock(enums.OrderActionCancel) {
		t.Fatal("reject and cancel restore stock")
	}
	if restoresStock(enums.OrderActionApprove) || restoresStock(enums.OrderActionShip) || restoresStock(enums.OrderActionDeliver) {
		t.Fatal("forward transitions must not restore stock")
	}
}
