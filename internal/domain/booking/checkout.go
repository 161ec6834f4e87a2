package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckoutStore caches checkout handoff payloads in Redis, keyed by
// correlation id, so a client that reloads mid-checkout can re-fetch the
// open session without replaying the submit flow. Entries expire with the
// checkout TTL; the database rows stay the source of truth.
type CheckoutStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCheckoutStore creates a checkout session store
func NewCheckoutStore(client *redis.Client, ttl time.Duration) *CheckoutStore {
	return &CheckoutStore{client: client, ttl: ttl}
}

func (s *CheckoutStore) key(correlationID string) string {
	return "checkout:" + correlationID
}

// Save stores the checkout payload under its correlation id
func (s *CheckoutStore) Save(ctx context.Context, checkout *CheckoutResponse) error {
	data, err := json.Marshal(checkout)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(checkout.CorrelationID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}
	return nil
}

// Get returns the cached checkout payload, or nil when absent or expired
func (s *CheckoutStore) Get(ctx context.Context, correlationID string) (*CheckoutResponse, error) {
	data, err := s.client.Get(ctx, s.key(correlationID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	var checkout CheckoutResponse
	if err := json.Unmarshal(data, &checkout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	return &checkout, nil
}

// Delete removes a session once its order has been consumed
func (s *CheckoutStore) Delete(ctx context.Context, correlationID string) error {
	return s.client.Del(ctx, s.key(correlationID)).Err()
}
