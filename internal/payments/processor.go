package payments

import (
	"context"

	stripesdk "github.com/stripe/stripe-go/v84"

	"github.com/isokofarm/isoko-backend/pkg/stripe"
)

// Processor intent statuses as reported by the payment processor.
const (
	ProcessorStatusSucceeded = "succeeded"
	ProcessorStatusCanceled  = "canceled"
)

// ProcessorIntent is the processor-side view of a payment intent.
type ProcessorIntent struct {
	ExternalRef  string
	ClientSecret string
	Status       string
}

// Processor abstracts the payment processor for intent lifecycle calls.
type Processor interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, orderID string) (ProcessorIntent, error)
	RetrieveIntent(ctx context.Context, externalRef string) (ProcessorIntent, error)
	CancelIntent(ctx context.Context, externalRef string) error
}

type stripeProcessor struct {
	client *stripe.Client
}

// NewStripeProcessor adapts the stripe client to the Processor interface.
func NewStripeProcessor(client *stripe.Client) Processor {
	return &stripeProcessor{client: client}
}

func (p *stripeProcessor) CreateIntent(ctx context.Context, amountCents int64, currency string, orderID string) (ProcessorIntent, error) {
	intent, err := p.client.CreateIntent(ctx, amountCents, currency, orderID)
	if err != nil {
		return ProcessorIntent{}, err
	}
	return fromStripeIntent(intent), nil
}

func (p *stripeProcessor) RetrieveIntent(ctx context.Context, externalRef string) (ProcessorIntent, error) {
	intent, err := p.client.RetrieveIntent(ctx, externalRef)
	if err != nil {
		return ProcessorIntent{}, err
	}
	return fromStripeIntent(intent), nil
}

func (p *stripeProcessor) CancelIntent(ctx context.Context, externalRef string) error {
	_, err := p.client.CancelIntent(ctx, externalRef)
	return err
}

func fromStripeIntent(intent *stripesdk.PaymentIntent) ProcessorIntent {
	return ProcessorIntent{
		ExternalRef:  intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}
}
