package stripe

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// CreateIntent registers a new payment intent with the processor.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string, orderID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		Metadata: map[string]string{"order_id": orderID},
	}

	var intent *stripe.PaymentIntent
	err := c.withRetry(ctx, func(callCtx context.Context) error {
		params.Context = callCtx
		created, err := paymentintent.New(params)
		if err != nil {
			return classifyRetry(err)
		}
		intent = created
		return nil
	})
	return intent, err
}

// RetrieveIntent fetches the current state of a payment intent by its reference.
func (c *Client) RetrieveIntent(ctx context.Context, externalRef string) (*stripe.PaymentIntent, error) {
	var intent *stripe.PaymentIntent
	err := c.withRetry(ctx, func(callCtx context.Context) error {
		params := &stripe.PaymentIntentParams{}
		params.Context = callCtx
		fetched, err := paymentintent.Get(externalRef, params)
		if err != nil {
			return classifyRetry(err)
		}
		intent = fetched
		return nil
	})
	return intent, err
}

// CancelIntent voids an outstanding payment intent.
func (c *Client) CancelIntent(ctx context.Context, externalRef string) (*stripe.PaymentIntent, error) {
	var intent *stripe.PaymentIntent
	err := c.withRetry(ctx, func(callCtx context.Context) error {
		params := &stripe.PaymentIntentCancelParams{}
		params.Context = callCtx
		cancelled, err := paymentintent.Cancel(externalRef, params)
		if err != nil {
			return classifyRetry(err)
		}
		intent = cancelled
		return nil
	})
	return intent, err
}

func (c *Client) withRetry(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	backoff := retry.NewExponential(200 * time.Millisecond)
	if c.maxRetries > 0 {
		backoff = retry.WithMaxRetries(c.maxRetries, backoff)
	} else {
		backoff = retry.WithMaxRetries(1, backoff)
	}

	return retry.Do(callCtx, backoff, func(ctx context.Context) error {
		return fn(ctx)
	})
}

// classifyRetry marks processor-side failures as retryable and keeps caller
// errors (card declines, bad requests) terminal.
func classifyRetry(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 || stripeErr.Type == stripe.ErrorTypeAPI {
			return retry.RetryableError(err)
		}
		return err
	}
	return retry.RetryableError(err)
}
