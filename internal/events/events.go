// Package events publishes payment lifecycle events to interested consumers.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	PaymentRequested = "payment.requested"
	PaymentApproved  = "payment.approved"
	PaymentRejected  = "payment.rejected"
	PaymentCancelled = "payment.cancelled"
)

type PaymentEvent struct {
	Type         string    `json:"type"`
	PaymentID    uint      `json:"payment_id"`
	StudentEmail string    `json:"student_email"`
	Month        string    `json:"month"`
	Amount       int64     `json:"amount"`
	Discounts    int64     `json:"discounts"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e PaymentEvent) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, PaymentEvent) error { return nil }

// Fanout delivers each event to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e PaymentEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
