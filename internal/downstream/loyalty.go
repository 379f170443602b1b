package downstream

import (
	"context"
	"net/http"
)

// LoyaltyClient is the facade for the loyalty service. All operations are
// scoped to a user via the X-User-Name header.
type LoyaltyClient struct {
	*Client
}

// NewLoyaltyClient wraps a Client configured for the loyalty service.
func NewLoyaltyClient(c *Client) *LoyaltyClient {
	return &LoyaltyClient{Client: c}
}

// Get fetches the user's loyalty profile.
func (c *LoyaltyClient) Get(ctx context.Context, username string) (*Loyalty, error) {
	var loyalty *Loyalty
	if err := c.do(ctx, http.MethodGet, "/api/v1/loyalties", username, nil, &loyalty); err != nil {
		return nil, err
	}
	if loyalty == nil {
		return nil, &Error{Service: c.service, Kind: KindNotFound}
	}
	return loyalty, nil
}

// Improve bumps the user's loyalty counter after a successful booking.
func (c *LoyaltyClient) Improve(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodGet, "/api/v1/loyalties/improve", username, nil, nil)
}

// Degrade lowers the user's loyalty counter after a cancellation. Failed
// degrades are deferred to the retry queue by the cancellation saga.
func (c *LoyaltyClient) Degrade(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodGet, "/api/v1/loyalties/degrade", username, nil, nil)
}
