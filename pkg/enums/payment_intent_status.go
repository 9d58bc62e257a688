package enums

import "fmt"

// PaymentIntentStatus tracks a single attempt against the payment processor.
type PaymentIntentStatus string

const (
	PaymentIntentStatusCreated   PaymentIntentStatus = "created"
	PaymentIntentStatusSucceeded PaymentIntentStatus = "succeeded"
	PaymentIntentStatusFailed    PaymentIntentStatus = "failed"
)

var validPaymentIntentStatuses = []PaymentIntentStatus{
	PaymentIntentStatusCreated,
	PaymentIntentStatusSucceeded,
	PaymentIntentStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentIntentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentIntentStatus.
func (p PaymentIntentStatus) IsValid() bool {
	for _, candidate := range validPaymentIntentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentIntentStatus converts raw input into a PaymentIntentStatus.
func ParsePaymentIntentStatus(value string) (PaymentIntentStatus, error) {
	for _, candidate := range validPaymentIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment intent status %q", value)
}
