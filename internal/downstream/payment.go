package downstream

import (
	"context"
	"net/http"
)

// PaymentClient is the facade for the payment service.
type PaymentClient struct {
	*Client
}

// NewPaymentClient wraps a Client configured for the payment service.
func NewPaymentClient(c *Client) *PaymentClient {
	return &PaymentClient{Client: c}
}

// Get fetches a payment record by UID.
func (c *PaymentClient) Get(ctx context.Context, paymentUID string) (*Payment, error) {
	var payment *Payment
	if err := c.do(ctx, http.MethodGet, "/api/v1/payments/"+paymentUID, "", nil, &payment); err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &Error{Service: c.service, Kind: KindNotFound}
	}
	return payment, nil
}

// Create persists a new payment record and returns it with its assigned UID.
func (c *PaymentClient) Create(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var payment *Payment
	if err := c.do(ctx, http.MethodPost, "/api/v1/payments", "", req, &payment); err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &Error{Service: c.service, Kind: KindNotFound}
	}
	return payment, nil
}

// Update persists changes to an existing payment record.
func (c *PaymentClient) Update(ctx context.Context, p Payment) error {
	return c.do(ctx, http.MethodPut, "/api/v1/payments", "", p, nil)
}

// Delete removes a payment record. Used as the booking saga's compensating
// action when the loyalty-improve step fails after payment creation.
func (c *PaymentClient) Delete(ctx context.Context, paymentUID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/payments/"+paymentUID, "", nil, nil)
}
